package alerts

import (
	"context"
	"fmt"

	"github.com/evocloud/jobqueue/pkg/email"
)

// EmailNotifier delivers alerts as transactional emails to the configured
// operator recipients.
type EmailNotifier struct {
	sender     email.EmailSender
	recipients []string
}

// NewEmailNotifier creates an email-backed notifier.
func NewEmailNotifier(sender email.EmailSender, recipients ...string) (*EmailNotifier, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	return &EmailNotifier{sender: sender, recipients: recipients}, nil
}

// Name returns "email".
func (n *EmailNotifier) Name() string { return "email" }

// Notify sends the alert to every recipient. The first send failure aborts
// the remaining recipients; the monitor treats the channel as failed and
// logs it.
func (n *EmailNotifier) Notify(ctx context.Context, alert Alert) error {
	subject := fmt.Sprintf("[queue alert] %s exceeded threshold", alert.Type)
	tenant := "all tenants"
	if alert.TenantID != nil {
		tenant = alert.TenantID.String()
	}
	body := fmt.Sprintf(
		"<p>%s</p><p>Tenant: %s<br>Metric: %s<br>Value: %.2f %s<br>Threshold: %.2f %s<br>Triggered: %s</p>",
		alert.Message, tenant, alert.Type,
		alert.Value, alert.Unit, alert.Threshold, alert.Unit,
		alert.TriggeredAt.Format("2006-01-02 15:04:05 MST"),
	)

	for _, to := range n.recipients {
		err := n.sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   to,
			Subject:  subject,
			BodyHTML: body,
			Tag:      "queue-alert",
		})
		if err != nil {
			return fmt.Errorf("failed to send alert email to %s: %w", to, err)
		}
	}
	return nil
}
