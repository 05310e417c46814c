// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single export run. It is a
// leaf package with no internal dependencies; the snapshot is embedded in
// the run report.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64 `json:"runs_started"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsFailed    int64 `json:"runs_failed"`

	// Batch submission
	HitsTotal        int64 `json:"hits_total"`
	BatchesSubmitted int64 `json:"batches_submitted"`
	BatchesSucceeded int64 `json:"batches_succeeded"`
	BatchesFailed    int64 `json:"batches_failed"`

	// Bulk import
	UploadBytes    int64 `json:"upload_bytes"`
	UploadsDeleted int64 `json:"uploads_deleted"`

	// Side effects
	SideEffectFailures int64 `json:"side_effect_failures"`

	// Dimensions (informational, set at construction)
	Mode  string `json:"mode"`
	RunID string `json:"run_id"`
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsCompleted int64
	runsFailed    int64

	hitsTotal        int64
	batchesSubmitted int64
	batchesSucceeded int64
	batchesFailed    int64

	uploadBytes    int64
	uploadsDeleted int64

	sideEffectFailures int64

	mode  string
	runID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(mode, runID string) *Collector {
	return &Collector{mode: mode, runID: runID}
}

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunCompleted records a SUCCESS outcome.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCompleted++
	c.mu.Unlock()
}

// IncRunFailed records an ERROR outcome.
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.mu.Unlock()
}

// AddHits records n hits built from the row set.
func (c *Collector) AddHits(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.hitsTotal += n
	c.mu.Unlock()
}

// IncBatchesSubmitted records one outbound batch POST.
func (c *Collector) IncBatchesSubmitted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.batchesSubmitted++
	c.mu.Unlock()
}

// IncBatchesSucceeded records a 2xx batch classification.
func (c *Collector) IncBatchesSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.batchesSucceeded++
	c.mu.Unlock()
}

// IncBatchesFailed records a non-2xx batch classification.
func (c *Collector) IncBatchesFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.batchesFailed++
	c.mu.Unlock()
}

// AddUploadBytes records the size of a generated import file.
func (c *Collector) AddUploadBytes(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploadBytes += n
	c.mu.Unlock()
}

// AddUploadsDeleted records previous uploads removed after an import.
func (c *Collector) AddUploadsDeleted(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploadsDeleted += n
	c.mu.Unlock()
}

// IncSideEffectFailure records a side effect that exhausted its retries.
func (c *Collector) IncSideEffectFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sideEffectFailures++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all metrics.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RunsStarted:   c.runsStarted,
		RunsCompleted: c.runsCompleted,
		RunsFailed:    c.runsFailed,

		HitsTotal:        c.hitsTotal,
		BatchesSubmitted: c.batchesSubmitted,
		BatchesSucceeded: c.batchesSucceeded,
		BatchesFailed:    c.batchesFailed,

		UploadBytes:    c.uploadBytes,
		UploadsDeleted: c.uploadsDeleted,

		SideEffectFailures: c.sideEffectFailures,

		Mode:  c.mode,
		RunID: c.runID,
	}
}
