// Package adapter defines the outcome notification boundary.
//
// Notifiers deliver a finished run's outcome to downstream systems: the
// warehouse status log, the alerting mailer, and the pub/sub channel. The
// runtime owns notifier lifecycle and retry; implementations perform exactly
// one delivery attempt per Notify call.
package adapter

import (
	"context"
	"time"

	"github.com/edgehill-data/gapush/types"
)

// OutcomeEvent is the payload delivered when a run finishes.
type OutcomeEvent struct {
	RunID          string `json:"run_id"`
	Mode           string `json:"mode"`
	Status         string `json:"status"` // SUCCESS or ERROR
	Message        string `json:"message,omitempty"`
	Timestamp      string `json:"timestamp"` // run start, "2006-01-02 15:04:05" UTC
	SuccessBatches int    `json:"success_batches"`
	FailedBatches  int    `json:"failed_batches"`
	DurationMs     int64  `json:"duration_ms"`
}

// NewOutcomeEvent builds the event from a run's outcome and counters.
func NewOutcomeEvent(meta *types.RunMeta, outcome *types.RunOutcome, successBatches, failedBatches int, duration time.Duration) *OutcomeEvent {
	return &OutcomeEvent{
		RunID:          meta.RunID,
		Mode:           string(meta.Mode),
		Status:         string(outcome.Status),
		Message:        outcome.Message,
		Timestamp:      outcome.Timestamp,
		SuccessBatches: successBatches,
		FailedBatches:  failedBatches,
		DurationMs:     duration.Milliseconds(),
	}
}

// Notifier delivers outcome events to a downstream system.
//
// Notify makes a single delivery attempt; the runtime wraps each notifier in
// its retry policy, so implementations must not retry internally.
type Notifier interface {
	// Notify delivers one outcome event.
	// Must respect context cancellation and deadlines.
	Notify(ctx context.Context, event *OutcomeEvent) error

	// Close releases notifier resources.
	Close() error
}
