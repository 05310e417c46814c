// Package submit delivers encoded hit batches to the collection endpoint and
// aggregates per-run submission results.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edgehill-data/gapush/iox"
	"github.com/edgehill-data/gapush/log"
	"github.com/edgehill-data/gapush/types"
)

// DefaultTimeout is the per-submission HTTP timeout.
const DefaultTimeout = 30 * time.Second

// contentType matches the newline-joined query-string body shape.
const contentType = "application/x-www-form-urlencoded"

// Config configures the batch submitter.
type Config struct {
	// EndpointURL is the collection endpoint's batch resource (required).
	EndpointURL string
	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Submitter performs single-shot batch submissions. Exactly one outbound
// POST per Submit call; the response code classifies the attempt and is
// never retried.
type Submitter struct {
	config Config
	client *http.Client
	logger *log.Logger
}

// NewSubmitter creates a submitter from the given config.
// Returns an error if the endpoint URL is empty.
func NewSubmitter(cfg Config, logger *log.Logger) (*Submitter, error) {
	if cfg.EndpointURL == "" {
		return nil, errors.New("submitter requires an endpoint URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Submitter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Submit POSTs one encoded payload and classifies the response:
// 2xx yields SubmissionSuccess, any other status SubmissionFailure. Only a
// transport-level fault returns an error, which aborts the whole run at the
// caller.
func (s *Submitter) Submit(ctx context.Context, payload string) (*types.SubmissionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.EndpointURL, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("submit: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit: request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &types.SubmissionResult{
		Payload: payload,
		Code:    resp.StatusCode,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = types.SubmissionSuccess
		s.logger.Debug("batch submitted", map[string]any{
			"status_code": resp.StatusCode,
		})
	} else {
		result.Status = types.SubmissionFailure
		s.logger.Warn("batch submission unsuccessful", map[string]any{
			"status_code": resp.StatusCode,
		})
	}

	return result, nil
}

// Close releases the underlying HTTP client's idle connections.
func (s *Submitter) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
