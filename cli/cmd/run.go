package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/edgehill-data/gapush/adapter"
	"github.com/edgehill-data/gapush/adapter/mailer"
	redisadapter "github.com/edgehill-data/gapush/adapter/redis"
	"github.com/edgehill-data/gapush/adapter/statuslog"
	"github.com/edgehill-data/gapush/bulk"
	"github.com/edgehill-data/gapush/cli/config"
	"github.com/edgehill-data/gapush/log"
	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/retry"
	"github.com/edgehill-data/gapush/runtime"
	"github.com/edgehill-data/gapush/source"
	"github.com/edgehill-data/gapush/submit"
	"github.com/edgehill-data/gapush/types"
)

// Exit codes for the run command.
const (
	exitSuccess      = 0
	exitRunError     = 1
	exitInvalidInput = 3
)

// RunCommand returns the run command, the only command that executes work.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one export run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to gapush.yaml config file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Delivery mode override: mp (batch submit) or di (bulk import)",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (default: generated UUID)",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path ('-' for stderr)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the outcome line on stdout",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitInvalidInput)
	}

	mode := cfg.Mode
	if m := c.String("mode"); m != "" {
		mode = m
	}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	meta := &types.RunMeta{
		RunID: runID,
		Mode:  types.DeliveryMode(mode),
	}
	logger := log.NewLogger(meta)
	collector := metrics.NewCollector(mode, runID)

	if err := validateRunConfig(cfg, meta.Mode); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), exitInvalidInput)
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	warehouse, err := source.NewWarehouse(ctx, source.Config{
		DSN:   cfg.Warehouse.DSN,
		Query: cfg.Warehouse.Query,
	}, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("warehouse: %v", err), exitInvalidInput)
	}
	defer func() { _ = warehouse.Close() }()

	controllerConfig := &runtime.Config{
		Meta:      meta,
		Source:    warehouse,
		Retry:     retryPolicy(cfg.Retry),
		Collector: collector,
	}

	switch meta.Mode {
	case types.ModeBatchSubmit:
		submitter, err := submit.NewSubmitter(submit.Config{EndpointURL: cfg.Endpoint}, logger)
		if err != nil {
			return cli.Exit(fmt.Sprintf("submitter: %v", err), exitInvalidInput)
		}
		defer func() { _ = submitter.Close() }()
		controllerConfig.Batch = submit.NewTracker(submitter, cfg.DefaultHit, cfg.BatchSize, logger, collector)

	case types.ModeBulkImport:
		deliverer, err := buildBulkDelivery(ctx, cfg, runID, logger, collector)
		if err != nil {
			return cli.Exit(fmt.Sprintf("bulk delivery: %v", err), exitInvalidInput)
		}
		controllerConfig.Bulk = deliverer
	}

	notifiers, err := buildNotifiers(cfg, warehouse, controllerConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("notifiers: %v", err), exitInvalidInput)
	}
	defer func() {
		for _, n := range notifiers {
			_ = n.Close()
		}
	}()

	controller, err := runtime.NewController(controllerConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("controller: %v", err), exitInvalidInput)
	}

	result := controller.Run(ctx)

	if !c.Bool("quiet") {
		fmt.Fprintln(os.Stdout, result.Outcome.Render())
	}

	exitCode := exitSuccess
	if result.Outcome.Status == types.OutcomeError {
		exitCode = exitRunError
	}

	if reportPath := c.String("report"); reportPath != "" {
		report := runtime.BuildRunReport(result, collector.Snapshot(), exitCode)
		if err := runtime.WriteRunReport(report, reportPath); err != nil {
			// Report failure is not outcome-changing; warn and keep the exit code.
			logger.Sugar().With("path", reportPath).Warnf("failed to write report: %v", err)
		}
	}

	return cli.Exit("", exitCode)
}

func buildBulkDelivery(ctx context.Context, cfg *config.Config, runID string, logger *log.Logger, collector *metrics.Collector) (*bulk.Deliverer, error) {
	importer, err := bulk.NewImportClient(bulk.ImportConfig{
		AccountID:     cfg.Import.AccountID,
		PropertyID:    cfg.Import.PropertyID,
		DatasetID:     cfg.Import.DatasetID,
		UploadBaseURL: cfg.Import.UploadBaseURL,
		APIBaseURL:    cfg.Import.APIBaseURL,
		AccessToken:   cfg.Import.AccessToken,
	}, logger)
	if err != nil {
		return nil, err
	}

	var archiver bulk.DocumentArchiver
	if cfg.Archive.Bucket != "" {
		a, err := bulk.NewArchiver(ctx, bulk.ArchiveConfig{
			Bucket:       cfg.Archive.Bucket,
			Prefix:       cfg.Archive.Prefix,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.S3PathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		archiver = a
	}

	return bulk.NewDeliverer(importer, archiver, runID, logger, collector)
}

// buildNotifiers wires the configured side effects into the controller config
// and returns them for cleanup.
func buildNotifiers(cfg *config.Config, warehouse *source.Warehouse, controllerConfig *runtime.Config) ([]adapter.Notifier, error) {
	var notifiers []adapter.Notifier

	if cfg.StatusLog.Enabled {
		n, err := statuslog.New(warehouse.DB(), statuslog.Config{Table: cfg.StatusLog.Table})
		if err != nil {
			return notifiers, err
		}
		controllerConfig.StatusLog = n
		notifiers = append(notifiers, n)
	}

	if cfg.Email.Enabled {
		n, err := mailer.New(mailer.Config{
			APIKey:  cfg.Email.APIKey,
			From:    cfg.Email.From,
			To:      cfg.Email.To,
			Subject: cfg.Email.Subject,
			BaseURL: cfg.Email.BaseURL,
		})
		if err != nil {
			return notifiers, err
		}
		controllerConfig.Alerter = n
		notifiers = append(notifiers, n)
	}

	if cfg.Publish.Enabled {
		n, err := redisadapter.New(redisadapter.Config{
			URL:     cfg.Publish.URL,
			Channel: cfg.Publish.Channel,
		})
		if err != nil {
			return notifiers, err
		}
		controllerConfig.Publisher = n
		notifiers = append(notifiers, n)
	}

	return notifiers, nil
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	p := retry.Default()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseWait.Duration > 0 {
		p.BaseWait = cfg.BaseWait.Duration
	}
	if cfg.MaxWait.Duration > 0 {
		p.MaxWait = cfg.MaxWait.Duration
	}
	return p
}
