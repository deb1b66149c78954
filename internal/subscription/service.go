package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// EmailSender delivers a single message to one recipient.
type EmailSender interface {
	Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error
}

// Service coordinates the subscription lifecycle: sign-up, confirmation
// token issuance and token redemption.
type Service struct {
	db      *sql.DB
	sender  EmailSender
	baseURL string
	now     func() time.Time
}

// NewService creates the subscription service. baseURL is the public URL of
// this deployment; confirmation links are built against it.
func NewService(db *sql.DB, sender EmailSender, baseURL string) *Service {
	return &Service{
		db:      db,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Subscribe registers a new subscriber, or refreshes an existing one, and
// emails a confirmation link. A refresh invalidates every previously issued
// token for that subscriber, so at most one token is live at any time. The
// issued token is returned.
//
// The database work commits before the email goes out. If the send fails
// the subscriber stays in pending_confirmation with a live token, and the
// returned error carries KindUnexpected; resubscribing triggers a fresh
// email.
func (s *Service) Subscribe(ctx context.Context, rawEmail, rawName string) (domain.SubscriptionToken, error) {
	var zero domain.SubscriptionToken

	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return zero, validationErr(err)
	}
	name, err := domain.ParseName(rawName)
	if err != nil {
		return zero, validationErr(err)
	}
	sub := domain.NewSubscriber{Email: email, Name: name}

	id, found, err := NewSubscriberStore(s.db).FindByEmail(ctx, email)
	if err != nil {
		return zero, unexpectedErr(err)
	}

	var token domain.SubscriptionToken
	if found {
		token, err = s.refreshSubscription(ctx, id)
	} else {
		token, err = s.createSubscription(ctx, sub)
	}
	if err != nil {
		return zero, err
	}

	if err := s.sendConfirmationEmail(ctx, email, token); err != nil {
		logger.Error("confirmation email failed", "email", email.String(), "error", err.Error())
		return zero, unexpectedErr(fmt.Errorf("sending confirmation email: %w", err))
	}

	logger.Info("confirmation email sent", "email", email.String(), "refresh", found)
	return token, nil
}

// createSubscription inserts the subscriber and its first token in one
// transaction.
func (s *Service) createSubscription(ctx context.Context, sub domain.NewSubscriber) (domain.SubscriptionToken, error) {
	var zero domain.SubscriptionToken

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, unexpectedErr(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	id, err := NewSubscriberStore(tx).InsertNew(ctx, sub, s.now())
	if err != nil {
		return zero, unexpectedErr(err)
	}

	token, err := domain.GenerateToken()
	if err != nil {
		return zero, unexpectedErr(fmt.Errorf("generating token: %w", err))
	}
	if err := NewTokenStore(tx).Store(ctx, id, token); err != nil {
		return zero, unexpectedErr(err)
	}

	if err := tx.Commit(); err != nil {
		return zero, unexpectedErr(fmt.Errorf("committing subscription: %w", err))
	}
	return token, nil
}

// refreshSubscription resets an existing subscriber to pending_confirmation
// and rotates its token, all in one transaction. The status reset runs
// first: its row lock serializes concurrent refreshes of the same
// subscriber, so the last transaction to commit owns the only live token.
func (s *Service) refreshSubscription(ctx context.Context, id uuid.UUID) (domain.SubscriptionToken, error) {
	var zero domain.SubscriptionToken

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, unexpectedErr(fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := NewSubscriberStore(tx).ResetToPending(ctx, id, s.now()); err != nil {
		return zero, unexpectedErr(err)
	}

	tokens := NewTokenStore(tx)
	if err := tokens.Invalidate(ctx, id); err != nil {
		return zero, unexpectedErr(err)
	}

	token, err := domain.GenerateToken()
	if err != nil {
		return zero, unexpectedErr(fmt.Errorf("generating token: %w", err))
	}
	if err := tokens.Store(ctx, id, token); err != nil {
		return zero, unexpectedErr(err)
	}

	if err := tx.Commit(); err != nil {
		return zero, unexpectedErr(fmt.Errorf("committing subscription refresh: %w", err))
	}
	return token, nil
}

// Confirm redeems a token, transitioning its subscriber to confirmed.
// Redeeming the same live token twice is a no-op the second time.
func (s *Service) Confirm(ctx context.Context, rawToken string) error {
	token, err := domain.ParseToken(rawToken)
	if err != nil {
		return &Error{Kind: KindMalformedToken, Err: err}
	}

	id, ok, err := NewTokenStore(s.db).ResolveSubscriberID(ctx, token)
	if err != nil {
		return unexpectedErr(err)
	}
	if !ok {
		return &Error{Kind: KindInvalidToken, Err: ErrTokenNotValid}
	}

	if err := NewSubscriberStore(s.db).MarkConfirmed(ctx, id); err != nil {
		return unexpectedErr(err)
	}

	logger.Info("subscriber confirmed", "subscriber_id", id.String())
	return nil
}

// ConfirmationLink builds the URL embedded in confirmation emails.
func (s *Service) ConfirmationLink(token domain.SubscriptionToken) string {
	return fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, token.String())
}

func (s *Service) sendConfirmationEmail(ctx context.Context, recipient domain.SubscriberEmail, token domain.SubscriptionToken) error {
	link := s.ConfirmationLink(token)
	htmlBody := fmt.Sprintf(
		`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`,
		link,
	)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
		link,
	)
	return s.sender.Send(ctx, recipient, "Welcome!", htmlBody, textBody)
}
