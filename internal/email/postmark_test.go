package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/domain"
)

func postmarkConfig(baseURL string) config.PostmarkConfig {
	return config.PostmarkConfig{
		BaseURL:        baseURL,
		ServerToken:    "test-server-token",
		TimeoutSeconds: 5,
	}
}

func recipient(t *testing.T) domain.SubscriberEmail {
	t.Helper()
	email, err := domain.ParseEmail("reader@example.com")
	if err != nil {
		t.Fatalf("ParseEmail: %v", err)
	}
	return email
}

func TestPostmarkSend(t *testing.T) {
	var got postmarkMessage
	var gotPath, gotToken, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewPostmarkClient(postmarkConfig(srv.URL), "newsletter@example.com")
	if err != nil {
		t.Fatalf("NewPostmarkClient: %v", err)
	}

	err = client.Send(context.Background(), recipient(t), "Welcome!", "<p>hi</p>", "hi")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotPath != "/email" {
		t.Errorf("request path = %q, want /email", gotPath)
	}
	if gotToken != "test-server-token" {
		t.Errorf("server token header = %q", gotToken)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if got.From != "newsletter@example.com" {
		t.Errorf("From = %q", got.From)
	}
	if got.To != "reader@example.com" {
		t.Errorf("To = %q", got.To)
	}
	if got.Subject != "Welcome!" || got.HtmlBody != "<p>hi</p>" || got.TextBody != "hi" {
		t.Errorf("message content = %+v", got)
	}
}

func TestPostmarkSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"ErrorCode": 300,
			"Message":   "Invalid 'To' address",
		})
	}))
	defer srv.Close()

	client, err := NewPostmarkClient(postmarkConfig(srv.URL), "newsletter@example.com")
	if err != nil {
		t.Fatalf("NewPostmarkClient: %v", err)
	}

	err = client.Send(context.Background(), recipient(t), "Welcome!", "<p>hi</p>", "hi")
	if err == nil {
		t.Fatal("Send swallowed API error")
	}
	if !strings.Contains(err.Error(), "Invalid 'To' address") {
		t.Errorf("error does not surface API message: %v", err)
	}
}

func TestPostmarkSendTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	cfg := postmarkConfig(srv.URL)
	client, err := NewPostmarkClient(cfg, "newsletter@example.com")
	if err != nil {
		t.Fatalf("NewPostmarkClient: %v", err)
	}
	client.httpClient.Timeout = 50 * time.Millisecond

	err = client.Send(context.Background(), recipient(t), "Welcome!", "<p>hi</p>", "hi")
	if err == nil {
		t.Fatal("Send did not time out")
	}
}

func TestPostmarkRejectsBadSender(t *testing.T) {
	_, err := NewPostmarkClient(postmarkConfig("https://api.postmarkapp.com"), "not-an-address")
	if err == nil {
		t.Fatal("NewPostmarkClient accepted invalid sender")
	}
}
