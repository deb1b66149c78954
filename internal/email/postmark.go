package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/newsletter/internal/config"
	"github.com/ignite/newsletter/internal/domain"
)

// PostmarkClient sends transactional email through the Postmark HTTP API.
type PostmarkClient struct {
	httpClient  *http.Client
	baseURL     string
	serverToken string
	sender      domain.SubscriberEmail
}

// NewPostmarkClient creates a Postmark client. The sender address goes
// through the same validation as subscriber addresses so a misconfigured
// deployment fails at startup rather than on the first send.
func NewPostmarkClient(cfg config.PostmarkConfig, sender string) (*PostmarkClient, error) {
	from, err := domain.ParseEmail(sender)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostmarkClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		serverToken: cfg.ServerToken,
		sender:      from,
	}, nil
}

type postmarkMessage struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send delivers one message via POST /email.
func (c *PostmarkClient) Send(ctx context.Context, recipient domain.SubscriberEmail, subject, htmlBody, textBody string) error {
	payload, err := json.Marshal(postmarkMessage{
		From:     c.sender.String(),
		To:       recipient.String(),
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("postmark request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			ErrorCode int    `json:"ErrorCode"`
			Message   string `json:"Message"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("postmark rejected message (status %d, code %d): %s",
				resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("postmark returned status %d", resp.StatusCode)
	}
	return nil
}
