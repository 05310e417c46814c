package types

import "time"

// OutcomeStatus is the terminal state of a run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the transform-and-submit flow completed
	// without raising. Individual batch failures do not change this.
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	// OutcomeError indicates some step of the flow failed.
	OutcomeError OutcomeStatus = "ERROR"
)

// TimestampLayout is the UTC wall-clock layout used in outcomes, log rows,
// and alert bodies.
const TimestampLayout = "2006-01-02 15:04:05"

// RunOutcome is the single value a run produces. Created once per invocation
// and never mutated after construction.
type RunOutcome struct {
	// Status is SUCCESS or ERROR.
	Status OutcomeStatus
	// Message is the captured error text; empty for SUCCESS.
	Message string
	// Timestamp is the run start time in UTC, TimestampLayout format.
	Timestamp string
}

// NewOutcome builds an outcome stamped with the given start time.
func NewOutcome(start time.Time, status OutcomeStatus, message string) *RunOutcome {
	return &RunOutcome{
		Status:    status,
		Message:   message,
		Timestamp: start.UTC().Format(TimestampLayout),
	}
}

// Render composes the outcome string returned to the invoking collaborator:
// "<timestamp>,<STATUS>" for SUCCESS, "<timestamp>,ERROR,<message>" otherwise.
func (o *RunOutcome) Render() string {
	if o.Status == OutcomeSuccess {
		return o.Timestamp + "," + string(o.Status)
	}
	return o.Timestamp + "," + string(o.Status) + "," + o.Message
}
