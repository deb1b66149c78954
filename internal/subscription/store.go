package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter/internal/domain"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting the stores run standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SubscriberStore handles subscriber database operations.
type SubscriberStore struct {
	q Querier
}

// NewSubscriberStore creates a subscriber store over db or an open
// transaction.
func NewSubscriberStore(q Querier) *SubscriberStore {
	return &SubscriberStore{q: q}
}

// FindByEmail looks up a subscriber by email. The second return value is
// false when no subscriber with that email exists.
func (s *SubscriberStore) FindByEmail(ctx context.Context, email domain.SubscriberEmail) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.q.QueryRowContext(ctx,
		`SELECT id FROM subscriptions WHERE email = $1`,
		email.String(),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("querying subscriber by email: %w", err)
	}
	return id, true, nil
}

// InsertNew stores a brand-new subscriber in pending_confirmation status
// and returns its generated id.
func (s *SubscriberStore) InsertNew(ctx context.Context, sub domain.NewSubscriber, now time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, sub.Email.String(), sub.Name.String(), now, domain.StatusPendingConfirmation,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting subscriber: %w", err)
	}
	return id, nil
}

// ResetToPending puts an existing subscriber back into pending_confirmation
// and refreshes its subscription timestamp. The UPDATE takes the row lock,
// so concurrent refreshes of the same subscriber serialize here.
func (s *SubscriberStore) ResetToPending(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, subscribed_at = $2 WHERE id = $3`,
		domain.StatusPendingConfirmation, now, id,
	)
	if err != nil {
		return fmt.Errorf("resetting subscriber status: %w", err)
	}
	return nil
}

// MarkConfirmed transitions a subscriber to confirmed. Confirming an
// already-confirmed subscriber is a no-op.
func (s *SubscriberStore) MarkConfirmed(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		domain.StatusConfirmed, id,
	)
	if err != nil {
		return fmt.Errorf("confirming subscriber: %w", err)
	}
	return nil
}

// ConfirmedRecipient is one row from the confirmed subscriber list. Err is
// set when the stored email no longer passes validation; callers decide
// whether to skip or fail.
type ConfirmedRecipient struct {
	ID    uuid.UUID
	Email domain.SubscriberEmail
	Err   error
}

// ListConfirmedRecipients returns every confirmed subscriber, re-validating
// each stored email. Application-level validation rules can tighten between
// the time a row was written and the time it is read, so stored values are
// not trusted blindly.
func (s *SubscriberStore) ListConfirmedRecipients(ctx context.Context) ([]ConfirmedRecipient, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, email FROM subscriptions WHERE status = $1`,
		domain.StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("querying confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var recipients []ConfirmedRecipient
	for rows.Next() {
		var (
			id  uuid.UUID
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning subscriber row: %w", err)
		}
		email, parseErr := domain.ParseEmail(raw)
		recipients = append(recipients, ConfirmedRecipient{ID: id, Email: email, Err: parseErr})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriber rows: %w", err)
	}
	return recipients, nil
}

// TokenStore handles subscription token database operations.
type TokenStore struct {
	q Querier
}

// NewTokenStore creates a token store over db or an open transaction.
func NewTokenStore(q Querier) *TokenStore {
	return &TokenStore{q: q}
}

// Store persists a freshly generated token for a subscriber.
func (s *TokenStore) Store(ctx context.Context, subscriberID uuid.UUID, token domain.SubscriptionToken) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscriber_id, is_valid)
		 VALUES ($1, $2, TRUE)`,
		token.String(), subscriberID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("token collision for subscriber %s: %w", subscriberID, err)
		}
		return fmt.Errorf("storing subscription token: %w", err)
	}
	return nil
}

// Invalidate marks every live token for a subscriber as spent. Rows are
// kept rather than deleted so a superseded token keeps resolving to "not
// valid" instead of "never existed".
func (s *TokenStore) Invalidate(ctx context.Context, subscriberID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE subscription_tokens SET is_valid = FALSE WHERE subscriber_id = $1`,
		subscriberID,
	)
	if err != nil {
		return fmt.Errorf("invalidating subscription tokens: %w", err)
	}
	return nil
}

// ResolveSubscriberID maps a live token back to its subscriber. The second
// return value is false when the token is unknown or has been invalidated;
// the two cases are indistinguishable to callers.
func (s *TokenStore) ResolveSubscriberID(ctx context.Context, token domain.SubscriptionToken) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.q.QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens
		 WHERE subscription_token = $1 AND is_valid = TRUE`,
		token.String(),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("resolving subscription token: %w", err)
	}
	return id, true, nil
}
