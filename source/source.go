// Package source reads prediction rows out of the warehouse for export.
package source

import (
	"context"

	"github.com/edgehill-data/gapush/types"
)

// RowSource yields the full row set for one export run.
type RowSource interface {
	Rows(ctx context.Context) (*types.RowSet, error)
}

// Static serves an in-memory row set. Used by tests and dry runs.
type Static struct {
	Set types.RowSet
}

var _ RowSource = (*Static)(nil)

// Rows returns the in-memory set unchanged.
func (s *Static) Rows(_ context.Context) (*types.RowSet, error) {
	return &s.Set, nil
}
