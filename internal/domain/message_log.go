package domain

import "time"

type LogStatus string

const (
	LogSent   LogStatus = "sent"
	LogFailed LogStatus = "failed"
)

// MessageLog is one delivery outcome. Gateway retries collapse into a
// single entry.
type MessageLog struct {
	ID                 string
	ContactID          string
	ContactName        string
	ContactPhone       string
	Message            string
	Status             LogStatus
	ErrorMessage       *string
	ScheduledMessageID *string // nil for send-now
	SentAt             time.Time
}
