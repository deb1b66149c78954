package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/newsletter"
	"github.com/ignite/newsletter/internal/pkg/logger"
	"github.com/ignite/newsletter/internal/subscription"
)

// SubscriptionService is the subscription lifecycle surface the handlers
// depend on. The issued token travels only by email; handlers discard it.
type SubscriptionService interface {
	Subscribe(ctx context.Context, email, name string) (domain.SubscriptionToken, error)
	Confirm(ctx context.Context, token string) error
}

// NewsletterPublisher fans an issue out to confirmed subscribers.
type NewsletterPublisher interface {
	Publish(ctx context.Context, issue newsletter.Issue) error
}

// Handlers contains HTTP handlers for the newsletter service.
type Handlers struct {
	subscriptions SubscriptionService
	publisher     NewsletterPublisher
}

// NewHandlers creates the handler set.
func NewHandlers(subscriptions SubscriptionService, publisher NewsletterPublisher) *Handlers {
	return &Handlers{subscriptions: subscriptions, publisher: publisher}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// Subscribe handles POST /subscriptions with a form-encoded name and email.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "malformed form data")
		return
	}

	_, err := h.subscriptions.Subscribe(r.Context(), r.PostFormValue("email"), r.PostFormValue("name"))
	if err != nil {
		switch subscription.KindOf(err) {
		case subscription.KindValidation:
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			logger.Error("subscribe failed", "error", err.Error())
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Confirm handles GET /subscriptions/confirm?subscription_token=...
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")

	err := h.subscriptions.Confirm(r.Context(), token)
	if err != nil {
		switch subscription.KindOf(err) {
		case subscription.KindMalformedToken:
			respondError(w, http.StatusBadRequest, err.Error())
		case subscription.KindInvalidToken:
			respondError(w, http.StatusUnauthorized, err.Error())
		default:
			logger.Error("confirm failed", "error", err.Error())
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

// PublishNewsletter handles POST /admin/newsletters.
func (h *Handlers) PublishNewsletter(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.Title == "" || (req.Content.HTML == "" && req.Content.Text == "") {
		respondError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	issue := newsletter.Issue{
		Title:    req.Title,
		HTMLBody: req.Content.HTML,
		TextBody: req.Content.Text,
	}
	if err := h.publisher.Publish(r.Context(), issue); err != nil {
		logger.Error("newsletter publish failed", "title", req.Title, "error", err.Error())
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// requireBearerToken guards a route group with a single operator token.
// The comparison is constant-time so response timing leaks nothing about
// the expected value.
func requireBearerToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			// An unset token disables the endpoint rather than opening it.
			if expected == "" || !ok ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
