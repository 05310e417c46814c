// Package mailer sends run failure alerts over a SendGrid-style mail API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edgehill-data/gapush/adapter"
	"github.com/edgehill-data/gapush/iox"
)

// DefaultTimeout is the per-send HTTP timeout.
const DefaultTimeout = 10 * time.Second

// DefaultBaseURL is the hosted mail API.
const DefaultBaseURL = "https://api.sendgrid.com"

// Config configures the alert mailer.
type Config struct {
	// APIKey is the bearer token for the mail API (required).
	APIKey string
	// From is the sender address (required).
	From string
	// To are the recipient addresses (at least one required).
	To []string
	// Subject is the alert subject line (required).
	Subject string
	// BaseURL overrides the mail API host, for tests (default: hosted API).
	BaseURL string
	// Timeout is the per-send timeout (default 10s).
	Timeout time.Duration
}

func (c Config) validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("mailer requires an API key")
	case c.From == "":
		return errors.New("mailer requires a sender address")
	case len(c.To) == 0:
		return errors.New("mailer requires at least one recipient")
	case c.Subject == "":
		return errors.New("mailer requires a subject")
	}
	return nil
}

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// Notifier sends one alert mail per failed run.
type Notifier struct {
	config Config
	client *http.Client
}

// New creates a mailer from the given config.
func New(cfg Config) (*Notifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Notifier{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Notify sends the alert mail. The body carries the run identity plus the
// outcome line so the alert alone is enough to start triage.
func (n *Notifier) Notify(ctx context.Context, event *adapter.OutcomeEvent) error {
	html := fmt.Sprintf(
		"<p>Export run <b>%s</b> (mode %s) finished with status <b>%s</b> at %s UTC.</p><p>%s</p>",
		event.RunID, event.Mode, event.Status, event.Timestamp, event.Message,
	)

	to := make([]address, len(n.config.To))
	for i, addr := range n.config.To {
		to[i] = address{Email: addr}
	}

	body, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: to}},
		From:             address{Email: n.config.From},
		Subject:          n.config.Subject,
		Content:          []content{{Type: "text/html", Value: html}},
	})
	if err != nil {
		return fmt.Errorf("mailer: marshal: %w", err)
	}

	url := n.config.BaseURL + "/v3/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailer: unexpected status %d: %s", resp.StatusCode, snippet)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Close releases the underlying HTTP client's idle connections.
func (n *Notifier) Close() error {
	n.client.CloseIdleConnections()
	return nil
}

var _ adapter.Notifier = (*Notifier)(nil)
