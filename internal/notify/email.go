package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"
)

const emailSubject = "WA Scheduler delivery"

// EmailNotifier mails summaries through the Resend API.
type EmailNotifier struct {
	client *resend.Client
	from   string
	to     string
}

func NewEmail(apiKey, from, to string) *EmailNotifier {
	return &EmailNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, text string) error {
	body := "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>"
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: emailSubject,
		Html:    body,
		Text:    text,
	}
	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
