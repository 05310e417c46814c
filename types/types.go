// Package types defines core domain types for the gapush export runtime.
//
//nolint:revive // types is a common Go package naming convention
package types

import "errors"

// DeliveryMode selects how prediction rows reach the collection property.
type DeliveryMode string

const (
	// ModeBulkImport writes the row set to a CSV file and hands it to the
	// management API's asynchronous data-import endpoint.
	ModeBulkImport DeliveryMode = "di"
	// ModeBatchSubmit turns each row into a hit and POSTs batches of hits
	// directly to the collection endpoint.
	ModeBatchSubmit DeliveryMode = "mp"
)

// Valid reports whether the mode is one of the recognized delivery modes.
func (m DeliveryMode) Valid() bool {
	return m == ModeBulkImport || m == ModeBatchSubmit
}

// ErrUnknownMode is the configuration error for an unrecognized delivery mode.
// Its text is the diagnostic surfaced verbatim in the run outcome message.
var ErrUnknownMode = errors.New("export method not found")

// MaxBatchSize is the hit count ceiling per collection endpoint submission.
const MaxBatchSize = 20

// Hit is one event record destined for the collection endpoint, represented
// as a flat key to string-convertible-value mapping.
type Hit map[string]string

// Batch is a bounded, ordered group of hits combined into one submission
// payload. The accumulator guarantees 1 <= len <= MaxBatchSize.
type Batch []Hit

// RowSet is the materialized result of the prediction query: column names in
// source order plus rows of stringified values, one value per column.
// Rows are read once and never mutated after construction.
type RowSet struct {
	Columns []string
	Rows    [][]string
}

// SubmissionStatus classifies one batch submission attempt.
type SubmissionStatus string

const (
	// SubmissionSuccess is a 2xx response from the collection endpoint.
	SubmissionSuccess SubmissionStatus = "success"
	// SubmissionFailure is any non-2xx response. Recorded, never retried.
	SubmissionFailure SubmissionStatus = "failure"
)

// SubmissionResult tags a submitted batch's encoded payload with the
// classified outcome of its single network attempt.
type SubmissionResult struct {
	// Payload is the encoded batch body that was POSTed.
	Payload string
	// Status is the success/failure classification by response code range.
	Status SubmissionStatus
	// Code is the HTTP status code of the response.
	Code int
}

// RunMeta carries run identity for logging and reporting.
type RunMeta struct {
	// RunID is the canonical run identifier.
	RunID string
	// Mode is the delivery mode for this run.
	Mode DeliveryMode
}
