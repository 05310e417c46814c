// Package statuslog appends run outcomes to a warehouse status table.
//
// Each finished run inserts one row, so operators can audit export history
// with plain SQL alongside the prediction data itself.
package statuslog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/edgehill-data/gapush/adapter"
)

// DefaultTable is the status table written when none is configured.
const DefaultTable = "export_status_log"

// identPattern accepts plain or schema-qualified identifiers. The table name
// is interpolated into the INSERT, so it must never pass through unchecked.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config configures the status log notifier.
type Config struct {
	// Table is the target table, optionally schema-qualified
	// (default: export_status_log).
	Table string
}

// Notifier inserts one status row per finished run.
type Notifier struct {
	db    *sql.DB
	table string
}

// New creates a status log notifier writing through the given pool.
// The pool is shared with the warehouse source; Close does not close it.
func New(db *sql.DB, cfg Config) (*Notifier, error) {
	if db == nil {
		return nil, errors.New("status log requires a database pool")
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("status log: invalid table name %q", table)
	}

	return &Notifier{db: db, table: table}, nil
}

// Notify appends the outcome row. The timestamp column records the run start,
// matching the outcome line written to stdout.
func (n *Notifier) Notify(ctx context.Context, event *adapter.OutcomeEvent) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (run_id, mode, logged_at, status, message) VALUES ($1, $2, $3, $4, $5)",
		n.table,
	)

	if _, err := n.db.ExecContext(ctx, query,
		event.RunID, event.Mode, event.Timestamp, event.Status, event.Message,
	); err != nil {
		return fmt.Errorf("status log: insert: %w", err)
	}
	return nil
}

// Close is a no-op; the shared pool is owned by the caller.
func (n *Notifier) Close() error { return nil }

var _ adapter.Notifier = (*Notifier)(nil)
