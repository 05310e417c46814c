package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edgehill-data/gapush/log"
	"github.com/edgehill-data/gapush/types"
)

// Config configures the warehouse row source.
type Config struct {
	// DSN is the warehouse connection string (required).
	DSN string
	// Query is the export query producing one row per hit (required).
	Query string
	// PingTimeout bounds the connection check (default 2s).
	PingTimeout time.Duration
	// MaxOpenConns caps the pool; a one-shot run needs very few (default 2).
	MaxOpenConns int
}

func (c Config) validate() error {
	if c.DSN == "" {
		return errors.New("warehouse requires a DSN")
	}
	if c.Query == "" {
		return errors.New("warehouse requires an export query")
	}
	return nil
}

// Warehouse reads the export row set from a SQL warehouse.
type Warehouse struct {
	config Config
	db     *sql.DB
	logger *log.Logger
}

var _ RowSource = (*Warehouse)(nil)

// NewWarehouse opens a connection pool and verifies connectivity.
func NewWarehouse(ctx context.Context, cfg Config, logger *log.Logger) (*Warehouse, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 2
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("warehouse: ping: %w", err)
	}

	return &Warehouse{config: cfg, db: db, logger: logger}, nil
}

// Rows executes the export query and materializes the full result.
// NULL values become empty strings so downstream field building can skip them.
func (w *Warehouse) Rows(ctx context.Context) (*types.RowSet, error) {
	rows, err := w.db.QueryContext(ctx, w.config.Query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("warehouse: columns: %w", err)
	}

	set := &types.RowSet{Columns: columns}
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("warehouse: scan: %w", err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		set.Rows = append(set.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: iterate: %w", err)
	}

	w.logger.Info("read warehouse rows", map[string]any{
		"rows":    len(set.Rows),
		"columns": len(columns),
	})

	return set, nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// DB exposes the pool so the status log can share the warehouse connection.
func (w *Warehouse) DB() *sql.DB {
	return w.db
}

// RenameColumns rewrites warehouse-safe column names back to protocol field
// names. Warehouse identifiers cannot carry ":", so queries encode it as "_"
// (e.g. "ga_cid" for "ga:cid"); this undoes that substitution.
func RenameColumns(columns []string) []string {
	renamed := make([]string, len(columns))
	for i, c := range columns {
		renamed[i] = strings.ReplaceAll(c, "_", ":")
	}
	return renamed
}
