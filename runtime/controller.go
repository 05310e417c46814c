// Package runtime orchestrates one export run end-to-end: read the row set,
// deliver it in the configured mode, classify the outcome, and fan the
// outcome out to the configured notifiers.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/edgehill-data/gapush/adapter"
	"github.com/edgehill-data/gapush/log"
	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/retry"
	"github.com/edgehill-data/gapush/source"
	"github.com/edgehill-data/gapush/submit"
	"github.com/edgehill-data/gapush/types"
)

// BatchDelivery drives the batch-submission path ("mp" mode).
type BatchDelivery interface {
	Run(ctx context.Context, rows *types.RowSet) (*submit.Report, error)
}

// BulkDelivery drives the data-import path ("di" mode).
type BulkDelivery interface {
	Deliver(ctx context.Context, rows *types.RowSet) error
}

// Config configures a single export run.
type Config struct {
	// Meta is the run identity (required).
	Meta *types.RunMeta
	// Source yields the row set (required).
	Source source.RowSource

	// Batch handles "mp" mode delivery. Required when Meta.Mode is mp.
	Batch BatchDelivery
	// Bulk handles "di" mode delivery. Required when Meta.Mode is di.
	Bulk BulkDelivery

	// StatusLog receives every outcome. Nil disables it.
	StatusLog adapter.Notifier
	// Alerter receives ERROR outcomes only. Nil disables it.
	Alerter adapter.Notifier
	// Publisher receives every outcome after the log and alert. Nil disables it.
	Publisher adapter.Notifier

	// Retry protects each notifier delivery (default: retry.Default()).
	Retry retry.Policy
	// Collector records run metrics. Nil-safe.
	Collector *metrics.Collector
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// RunResult is the terminal state of one run.
type RunResult struct {
	// Meta is the run identity.
	Meta *types.RunMeta
	// Outcome is the classified outcome, stamped with the run start time.
	Outcome *types.RunOutcome
	// Duration is the total run duration.
	Duration time.Duration
	// Report holds batch-submission stats. Nil in "di" mode.
	Report *submit.Report
	// SideEffectErrors holds one entry per notifier that exhausted its
	// retries. Side effect failures never change the outcome.
	SideEffectErrors []error
}

// Controller runs one export.
type Controller struct {
	config *Config
	logger *log.Logger
}

// NewController creates a controller. Returns an error when the config is
// missing the pieces the configured mode needs.
func NewController(config *Config) (*Controller, error) {
	if config.Meta == nil || config.Meta.RunID == "" {
		return nil, fmt.Errorf("controller requires run metadata")
	}
	if config.Source == nil {
		return nil, fmt.Errorf("controller requires a row source")
	}
	switch config.Meta.Mode {
	case types.ModeBatchSubmit:
		if config.Batch == nil {
			return nil, fmt.Errorf("mode %q requires a batch delivery", config.Meta.Mode)
		}
	case types.ModeBulkImport:
		if config.Bulk == nil {
			return nil, fmt.Errorf("mode %q requires a bulk delivery", config.Meta.Mode)
		}
	default:
		// Unknown modes are classified at run time, not rejected here, so a
		// misconfigured job still produces a logged ERROR outcome.
	}
	if err := config.Retry.Validate(); err != nil {
		config.Retry = retry.Default()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Controller{
		config: config,
		logger: log.NewLogger(config.Meta),
	}, nil
}

// Run executes the export end-to-end and never returns an error: every
// failure path is classified into the outcome, and the outcome is always
// delivered to the notifiers before returning.
//
// Execution flow:
//  1. Read the row set
//  2. Deliver per mode
//  3. Classify the outcome
//  4. Fan out: status log, alert (ERROR only), publish
func (c *Controller) Run(ctx context.Context) *RunResult {
	start := c.config.Clock()
	c.config.Collector.IncRunStarted()

	c.logger.Info("starting run", map[string]any{
		"mode": string(c.config.Meta.Mode),
	})

	result := &RunResult{Meta: c.config.Meta}
	outcome := c.execute(ctx, result)

	result.Outcome = types.NewOutcome(start, outcome.status, outcome.message)
	result.Duration = c.config.Clock().Sub(start)

	switch result.Outcome.Status {
	case types.OutcomeSuccess:
		c.config.Collector.IncRunCompleted()
		c.logger.Info("run succeeded", map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
		})
	case types.OutcomeError:
		c.config.Collector.IncRunFailed()
		c.logger.Error("run failed", map[string]any{
			"message":     result.Outcome.Message,
			"duration_ms": result.Duration.Milliseconds(),
		})
	}

	c.notifyAll(ctx, result)

	return result
}

type classified struct {
	status  types.OutcomeStatus
	message string
}

func (c *Controller) execute(ctx context.Context, result *RunResult) classified {
	if !c.config.Meta.Mode.Valid() {
		return classified{types.OutcomeError, types.ErrUnknownMode.Error()}
	}

	rows, err := c.config.Source.Rows(ctx)
	if err != nil {
		return classified{types.OutcomeError, fmt.Sprintf("read rows: %v", err)}
	}

	switch c.config.Meta.Mode {
	case types.ModeBatchSubmit:
		report, err := c.config.Batch.Run(ctx, rows)
		result.Report = report
		if err != nil {
			return classified{types.OutcomeError, fmt.Sprintf("batch delivery: %v", err)}
		}
		// Rejected batches are surfaced in the report only; the run is SUCCESS
		// as long as the flow itself completed.
		return classified{types.OutcomeSuccess, ""}

	case types.ModeBulkImport:
		if err := c.config.Bulk.Deliver(ctx, rows); err != nil {
			return classified{types.OutcomeError, fmt.Sprintf("bulk delivery: %v", err)}
		}
		return classified{types.OutcomeSuccess, ""}
	}

	return classified{types.OutcomeError, types.ErrUnknownMode.Error()}
}

// notifyAll delivers the outcome to each configured notifier in a fixed
// order: status log, alert, publish. Each delivery is independently retried
// and isolated, so one notifier failing never blocks the others.
func (c *Controller) notifyAll(ctx context.Context, result *RunResult) {
	successBatches, failedBatches := 0, 0
	if result.Report != nil {
		successBatches = result.Report.SuccessCount()
		failedBatches = result.Report.FailureCount()
	}
	event := adapter.NewOutcomeEvent(c.config.Meta, result.Outcome, successBatches, failedBatches, result.Duration)

	c.notify(ctx, result, "status_log", c.config.StatusLog, event)
	if result.Outcome.Status == types.OutcomeError {
		c.notify(ctx, result, "alert", c.config.Alerter, event)
	}
	c.notify(ctx, result, "publish", c.config.Publisher, event)
}

func (c *Controller) notify(ctx context.Context, result *RunResult, name string, n adapter.Notifier, event *adapter.OutcomeEvent) {
	if n == nil {
		return
	}

	err := c.config.Retry.Do(ctx, func() error {
		return n.Notify(ctx, event)
	})
	if err != nil {
		c.config.Collector.IncSideEffectFailure()
		result.SideEffectErrors = append(result.SideEffectErrors, fmt.Errorf("%s: %w", name, err))
		c.logger.Error("side effect failed after retries", map[string]any{
			"side_effect": name,
			"error":       err.Error(),
		})
		return
	}

	c.logger.Debug("side effect delivered", map[string]any{
		"side_effect": name,
	})
}
