package bulk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/edgehill-data/gapush/log"
)

// ArchiveConfig configures the S3 archive for generated import files.
type ArchiveConfig struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required archive configuration is present.
func (c *ArchiveConfig) Validate() error {
	if c.Bucket == "" {
		return errors.New("archive bucket is required")
	}
	return nil
}

// objectPutter is the slice of the S3 API the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver keeps a copy of each generated import file in object storage.
// The platform's data source only serves the latest upload, so the archive
// is the durable record of what each run shipped.
type Archiver struct {
	config ArchiveConfig
	client objectPutter
	logger *log.Logger
}

// NewArchiver creates an archiver backed by S3.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
func NewArchiver(ctx context.Context, cfg ArchiveConfig, logger *log.Logger) (*Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Archiver{
		config: cfg,
		client: s3.NewFromConfig(awsConfig, s3Opts...),
		logger: logger,
	}, nil
}

// newArchiverWithClient is the test seam.
func newArchiverWithClient(cfg ArchiveConfig, client objectPutter, logger *log.Logger) *Archiver {
	return &Archiver{config: cfg, client: client, logger: logger}
}

// Archive stores one import document under a run- and time-scoped key.
func (a *Archiver) Archive(ctx context.Context, runID string, doc []byte) (string, error) {
	key := path.Join(a.config.Prefix, time.Now().UTC().Format("2006/01/02"), runID+".csv")

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put object: %w", err)
	}

	a.logger.Info("archived import file", map[string]any{
		"bucket": a.config.Bucket,
		"key":    key,
		"bytes":  len(doc),
	})

	return key, nil
}
