// Package notify pushes short delivery summaries to the operator. Every
// sink is best effort: callers log the error and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes summaries to the log. Used when no sink is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, text string) error {
	n.logger.InfoContext(ctx, "delivery summary", "text", text)
	return nil
}

// Multi fans a summary out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Config struct {
	TelegramToken  string
	TelegramChatID int64
	ResendAPIKey   string
	ResendFrom     string
	EmailTo        string
}

// New builds the configured sinks. With nothing configured it returns a
// LogNotifier.
func New(cfg Config, logger *slog.Logger) (Notifier, error) {
	var sinks Multi
	if cfg.TelegramToken != "" {
		tg, err := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		sinks = append(sinks, tg)
	}
	if cfg.ResendAPIKey != "" {
		sinks = append(sinks, NewEmail(cfg.ResendAPIKey, cfg.ResendFrom, cfg.EmailTo))
	}

	switch len(sinks) {
	case 0:
		return NewLogNotifier(logger), nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

const previewRunes = 100

type Summary struct {
	Sent        bool
	ContactName string
	Message     string
	Error       string
}

// Text renders the summary: status icon and headline, recipient, the start
// of the message, and the failure reason if any.
func (s Summary) Text() string {
	icon, status := "✅", "sent"
	if !s.Sent {
		icon, status = "❌", "failed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Scheduled message %s\n", icon, status)
	fmt.Fprintf(&b, "To: %s\n", s.ContactName)
	fmt.Fprintf(&b, "Message: %s", preview(s.Message))
	if !s.Sent && s.Error != "" {
		fmt.Fprintf(&b, "\nError: %s", s.Error)
	}
	return b.String()
}

func preview(msg string) string {
	if utf8.RuneCountInString(msg) <= previewRunes {
		return msg
	}
	return string([]rune(msg)[:previewRunes]) + "..."
}
