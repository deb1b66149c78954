package newsletter

import (
	"context"
	"fmt"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/subscription"
)

// RecipientLister provides the confirmed subscriber list.
type RecipientLister interface {
	ListConfirmedRecipients(ctx context.Context) ([]subscription.ConfirmedRecipient, error)
}

// EmailSender delivers a single message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error
}

// Issue is one newsletter edition to deliver.
type Issue struct {
	Title    string
	HTMLBody string
	TextBody string
}

// Dispatcher fans a newsletter issue out to every confirmed subscriber.
type Dispatcher struct {
	recipients RecipientLister
	sender     EmailSender
}

// NewDispatcher creates a dispatcher over the given subscriber list and
// mail transport.
func NewDispatcher(recipients RecipientLister, sender EmailSender) *Dispatcher {
	return &Dispatcher{recipients: recipients, sender: sender}
}

// Publish sends issue to every confirmed subscriber, one message each, in
// list order. Rows whose stored email no longer validates are skipped with
// a warning. The first transport failure aborts the whole run; earlier
// sends are not retracted and later recipients are not attempted, so
// callers retrying a failed publish will re-send to the early recipients.
func (d *Dispatcher) Publish(ctx context.Context, issue Issue) error {
	recipients, err := d.recipients.ListConfirmedRecipients(ctx)
	if err != nil {
		return fmt.Errorf("listing confirmed subscribers: %w", err)
	}

	delivered := 0
	for _, rec := range recipients {
		if rec.Err != nil {
			logger.Warn("skipping subscriber with invalid stored email",
				"subscriber_id", rec.ID.String(),
				"error", rec.Err.Error(),
			)
			continue
		}
		if err := d.sender.Send(ctx, rec.Email, issue.Title, issue.HTMLBody, issue.TextBody); err != nil {
			return fmt.Errorf("sending newsletter to %s: %w", logger.RedactEmail(rec.Email.String()), err)
		}
		delivered++
	}

	logger.Info("newsletter issue published", "title", issue.Title, "delivered", delivered)
	return nil
}
