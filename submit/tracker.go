package submit

import (
	"context"
	"fmt"

	"github.com/edgehill-data/gapush/hit"
	"github.com/edgehill-data/gapush/log"
	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/types"
)

// BatchSubmitter abstracts the single-shot submitter for test injection.
type BatchSubmitter interface {
	Submit(ctx context.Context, payload string) (*types.SubmissionResult, error)
}

// Report aggregates one run's submissions. The success and failure payload
// lists partition the submitted batches exactly.
type Report struct {
	// TotalHits is the number of hits built from the row set.
	TotalHits int
	// TotalBatches is len(SuccessPayloads) + len(FailedPayloads).
	TotalBatches int
	// SuccessPayloads holds the encoded payloads that got a 2xx, in
	// submission order.
	SuccessPayloads []string
	// FailedPayloads holds the encoded payloads that got a non-2xx, in
	// submission order, kept verbatim for diagnostics.
	FailedPayloads []string
}

// SuccessCount returns the number of batches accepted by the endpoint.
func (r *Report) SuccessCount() int { return len(r.SuccessPayloads) }

// FailureCount returns the number of batches the endpoint rejected.
func (r *Report) FailureCount() int { return len(r.FailedPayloads) }

// Tracker drives build -> accumulate -> encode -> submit over a full row set.
//
// Delivery is best-effort: a batch that classifies as failed is recorded and
// the tracker moves on to the next batch. Only a transport fault aborts.
type Tracker struct {
	submitter BatchSubmitter
	defaults  map[string]string
	batchSize int
	logger    *log.Logger
	collector *metrics.Collector
}

// NewTracker creates a tracker. batchSize <= 0 uses types.MaxBatchSize.
func NewTracker(submitter BatchSubmitter, defaults map[string]string, batchSize int, logger *log.Logger, collector *metrics.Collector) *Tracker {
	if batchSize <= 0 {
		batchSize = types.MaxBatchSize
	}
	return &Tracker{
		submitter: submitter,
		defaults:  defaults,
		batchSize: batchSize,
		logger:    logger,
		collector: collector,
	}
}

// Run streams every row through the pipeline and returns the aggregate
// report. The returned error is non-nil only for transport faults, which
// abort the remainder of the run.
func (t *Tracker) Run(ctx context.Context, rows *types.RowSet) (*Report, error) {
	report := &Report{
		SuccessPayloads: make([]string, 0),
		FailedPayloads:  make([]string, 0),
	}
	acc := hit.NewAccumulator(t.batchSize)

	for _, row := range rows.Rows {
		report.TotalHits++
		t.collector.AddHits(1)

		h := hit.Build(t.defaults, rows.Columns, row)
		if batch, ok := acc.Add(h); ok {
			if err := t.submitBatch(ctx, batch, report); err != nil {
				return report, err
			}
		}
	}

	// Issue the trailing partial batch, if any.
	if batch, ok := acc.Flush(); ok {
		t.logger.Debug("submitting remainder batch", map[string]any{
			"size": len(batch),
		})
		if err := t.submitBatch(ctx, batch, report); err != nil {
			return report, err
		}
	}

	t.logger.Info("completed all endpoint calls", map[string]any{
		"hits":               report.TotalHits,
		"successful_batches": report.SuccessCount(),
		"failed_batches":     report.FailureCount(),
	})
	if report.FailureCount() > 0 {
		t.logger.Warn("failed batch payloads", map[string]any{
			"payloads": report.FailedPayloads,
		})
	}

	return report, nil
}

func (t *Tracker) submitBatch(ctx context.Context, batch types.Batch, report *Report) error {
	payload := hit.EncodeBatch(batch)
	report.TotalBatches++
	t.collector.IncBatchesSubmitted()

	result, err := t.submitter.Submit(ctx, payload)
	if err != nil {
		return fmt.Errorf("batch %d: %w", report.TotalBatches, err)
	}

	switch result.Status {
	case types.SubmissionSuccess:
		report.SuccessPayloads = append(report.SuccessPayloads, result.Payload)
		t.collector.IncBatchesSucceeded()
	case types.SubmissionFailure:
		report.FailedPayloads = append(report.FailedPayloads, result.Payload)
		t.collector.IncBatchesFailed()
	}

	return nil
}
