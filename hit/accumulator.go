package hit

import "github.com/edgehill-data/gapush/types"

// Accumulator groups a stream of hits into fixed-size batches, preserving
// source order within and across batches. It never yields an empty batch:
// the trailing partial batch (size 1..size-1) only surfaces from Flush when
// hits remain.
type Accumulator struct {
	size int
	cur  types.Batch
}

// NewAccumulator creates an accumulator with the given batch size.
// A size <= 0 falls back to types.MaxBatchSize.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		size = types.MaxBatchSize
	}
	return &Accumulator{
		size: size,
		cur:  make(types.Batch, 0, size),
	}
}

// Add appends one hit. When the pending batch reaches the configured size it
// is returned with ok=true and a fresh batch is started.
func (a *Accumulator) Add(h types.Hit) (types.Batch, bool) {
	a.cur = append(a.cur, h)
	if len(a.cur) < a.size {
		return nil, false
	}

	full := a.cur
	a.cur = make(types.Batch, 0, a.size)
	return full, true
}

// Flush returns the trailing partial batch, if any. Call once at stream end.
func (a *Accumulator) Flush() (types.Batch, bool) {
	if len(a.cur) == 0 {
		return nil, false
	}

	rest := a.cur
	a.cur = make(types.Batch, 0, a.size)
	return rest, true
}

// Pending reports how many hits are buffered in the unfinished batch.
func (a *Accumulator) Pending() int { return len(a.cur) }
