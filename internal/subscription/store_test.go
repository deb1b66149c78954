package subscription

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/newsletter/internal/domain"
)

func mustEmail(t *testing.T, raw string) domain.SubscriberEmail {
	t.Helper()
	email, err := domain.ParseEmail(raw)
	if err != nil {
		t.Fatalf("ParseEmail(%q): %v", raw, err)
	}
	return email
}

func mustName(t *testing.T, raw string) domain.SubscriberName {
	t.Helper()
	name, err := domain.ParseName(raw)
	if err != nil {
		t.Fatalf("ParseName(%q): %v", raw, err)
	}
	return name
}

func TestFindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewSubscriberStore(db)
	email := mustEmail(t, "ursula@example.com")
	wantID := uuid.New()

	mock.ExpectQuery("SELECT id FROM subscriptions").
		WithArgs("ursula@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(wantID))

	id, found, err := store.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if !found {
		t.Fatal("FindByEmail found = false, want true")
	}
	if id != wantID {
		t.Errorf("FindByEmail id = %s, want %s", id, wantID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM subscriptions").
		WillReturnError(sql.ErrNoRows)

	_, found, err := NewSubscriberStore(db).FindByEmail(context.Background(), mustEmail(t, "nobody@example.com"))
	if err != nil {
		t.Fatalf("FindByEmail returned error for missing row: %v", err)
	}
	if found {
		t.Error("FindByEmail found = true for missing row")
	}
}

func TestInsertNew(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	sub := domain.NewSubscriber{
		Email: mustEmail(t, "ursula@example.com"),
		Name:  mustName(t, "Ursula Le Guin"),
	}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(sqlmock.AnyArg(), "ursula@example.com", "Ursula Le Guin", now, domain.StatusPendingConfirmation).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := NewSubscriberStore(db).InsertNew(context.Background(), sub, now)
	if err != nil {
		t.Fatalf("InsertNew returned error: %v", err)
	}
	if id == uuid.Nil {
		t.Error("InsertNew returned nil id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkConfirmed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE subscriptions SET status").
		WithArgs(domain.StatusConfirmed, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewSubscriberStore(db).MarkConfirmed(context.Background(), id); err != nil {
		t.Fatalf("MarkConfirmed returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListConfirmedRecipients(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	goodID, badID := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT id, email FROM subscriptions").
		WithArgs(domain.StatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow(goodID, "reader@example.com").
			AddRow(badID, "not-an-email"))

	recipients, err := NewSubscriberStore(db).ListConfirmedRecipients(context.Background())
	if err != nil {
		t.Fatalf("ListConfirmedRecipients returned error: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("got %d recipients, want 2", len(recipients))
	}
	if recipients[0].Err != nil {
		t.Errorf("valid stored email flagged invalid: %v", recipients[0].Err)
	}
	if recipients[0].Email.String() != "reader@example.com" {
		t.Errorf("recipient email = %q", recipients[0].Email.String())
	}
	if recipients[1].Err == nil {
		t.Error("corrupt stored email not flagged")
	}
	if recipients[1].ID != badID {
		t.Errorf("corrupt row id = %s, want %s", recipients[1].ID, badID)
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	subscriberID := uuid.New()
	token, err := domain.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	mock.ExpectExec("INSERT INTO subscription_tokens").
		WithArgs(token.String(), subscriberID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT subscriber_id FROM subscription_tokens").
		WithArgs(token.String()).
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id"}).AddRow(subscriberID))

	store := NewTokenStore(db)
	if err := store.Store(context.Background(), subscriberID, token); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	id, ok, err := store.ResolveSubscriberID(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveSubscriberID returned error: %v", err)
	}
	if !ok {
		t.Fatal("ResolveSubscriberID ok = false for stored token")
	}
	if id != subscriberID {
		t.Errorf("resolved id = %s, want %s", id, subscriberID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTokenStoreCollision(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO subscription_tokens").
		WillReturnError(&pq.Error{Code: "23505"})

	token, err := domain.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	err = NewTokenStore(db).Store(context.Background(), uuid.New(), token)
	if err == nil {
		t.Fatal("Store swallowed unique violation")
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		t.Errorf("unique violation cause not preserved: %v", err)
	}
}

func TestResolveSubscriberIDUnknownToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT subscriber_id FROM subscription_tokens").
		WillReturnError(sql.ErrNoRows)

	token, err := domain.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	_, ok, err := NewTokenStore(db).ResolveSubscriberID(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveSubscriberID returned error for unknown token: %v", err)
	}
	if ok {
		t.Error("ResolveSubscriberID ok = true for unknown token")
	}
}
