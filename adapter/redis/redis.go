// Package redis implements a Redis pub/sub outcome notifier.
//
// Publishes run outcome events as JSON to a configurable Redis channel so
// downstream schedulers can react to export completions.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/edgehill-data/gapush/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "gapush:run_outcome"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the Redis pub/sub notifier.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: gapush:run_outcome).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
}

// Notifier publishes outcome events via Redis PUBLISH. One attempt per call;
// the runtime's retry policy handles transient failures.
type Notifier struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub notifier from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Notifier{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Notify sends the event as a JSON PUBLISH to the configured channel.
func (n *Notifier) Notify(ctx context.Context, event *adapter.OutcomeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	if err := n.client.Publish(publishCtx, n.config.Channel, body).Err(); err != nil {
		return fmt.Errorf("redis: publish: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (n *Notifier) Close() error {
	return n.client.Close()
}

// Verify Notifier implements the adapter interface.
var _ adapter.Notifier = (*Notifier)(nil)
