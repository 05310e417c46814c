package config

import (
	"fmt"
	"time"
)

// Config represents a gapush.yaml configuration file.
// Values act as defaults for gapush run flags; CLI flags always override.
type Config struct {
	// Mode selects the delivery path: "mp" (batch submit) or "di" (bulk import).
	Mode string `yaml:"mode"`
	// Endpoint is the collection endpoint's batch resource (mp mode).
	Endpoint string `yaml:"endpoint"`
	// DefaultHit holds protocol fields applied to every hit before row values.
	DefaultHit map[string]string `yaml:"default_hit"`
	// BatchSize caps hits per submission. 0 uses the protocol maximum.
	BatchSize int `yaml:"batch_size"`

	Warehouse WarehouseConfig `yaml:"warehouse"`
	Import    ImportConfig    `yaml:"import"`
	Archive   ArchiveConfig   `yaml:"archive"`
	StatusLog StatusLogConfig `yaml:"status_log"`
	Email     EmailConfig     `yaml:"email"`
	Publish   PublishConfig   `yaml:"publish"`
	Retry     RetryConfig     `yaml:"retry"`
}

// WarehouseConfig holds the row source settings.
type WarehouseConfig struct {
	DSN   string `yaml:"dsn"`
	Query string `yaml:"query"`
}

// ImportConfig holds the data-import settings (di mode).
type ImportConfig struct {
	AccountID     string `yaml:"account_id"`
	PropertyID    string `yaml:"property_id"`
	DatasetID     string `yaml:"dataset_id"`
	UploadBaseURL string `yaml:"upload_base_url"`
	APIBaseURL    string `yaml:"api_base_url"`
	AccessToken   string `yaml:"access_token"`
}

// ArchiveConfig holds the S3 archive settings for generated import files.
type ArchiveConfig struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// StatusLogConfig holds the warehouse status table settings.
type StatusLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Table   string `yaml:"table"`
}

// EmailConfig holds the failure alert settings.
type EmailConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKey  string   `yaml:"api_key"`
	From    string   `yaml:"from"`
	To      []string `yaml:"to"`
	Subject string   `yaml:"subject"`
	BaseURL string   `yaml:"base_url"`
}

// PublishConfig holds the outcome pub/sub settings.
type PublishConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// RetryConfig holds the side effect retry settings.
// Zero values fall back to the runtime defaults.
type RetryConfig struct {
	MaxAttempts uint     `yaml:"max_attempts"`
	BaseWait    Duration `yaml:"base_wait"`
	MaxWait     Duration `yaml:"max_wait"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
