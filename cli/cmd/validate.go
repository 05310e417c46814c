package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/edgehill-data/gapush/cli/config"
	"github.com/edgehill-data/gapush/types"
)

// ValidateCommand returns the validate command. It checks a config file for
// the configured mode without touching the warehouse or the endpoint.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a config file without running",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Path to gapush.yaml config file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Delivery mode override: mp or di",
			},
		},
		Action: validateAction,
	}
}

func validateAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitInvalidInput)
	}

	mode := cfg.Mode
	if m := c.String("mode"); m != "" {
		mode = m
	}

	if err := validateRunConfig(cfg, types.DeliveryMode(mode)); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), exitInvalidInput)
	}

	fmt.Printf("config OK (mode %s)\n", mode)
	return nil
}

// validateRunConfig checks everything a run of the given mode will need, so
// misconfiguration surfaces before any warehouse or network work starts.
func validateRunConfig(cfg *config.Config, mode types.DeliveryMode) error {
	if !mode.Valid() {
		return types.ErrUnknownMode
	}
	if cfg.Warehouse.DSN == "" {
		return fmt.Errorf("warehouse.dsn is required")
	}
	if cfg.Warehouse.Query == "" {
		return fmt.Errorf("warehouse.query is required")
	}

	switch mode {
	case types.ModeBatchSubmit:
		if cfg.Endpoint == "" {
			return fmt.Errorf("endpoint is required for mode %q", mode)
		}
		if cfg.BatchSize > types.MaxBatchSize {
			return fmt.Errorf("batch_size %d exceeds the protocol maximum %d", cfg.BatchSize, types.MaxBatchSize)
		}

	case types.ModeBulkImport:
		im := cfg.Import
		if im.AccountID == "" || im.PropertyID == "" || im.DatasetID == "" {
			return fmt.Errorf("import.account_id, import.property_id and import.dataset_id are required for mode %q", mode)
		}
		if im.UploadBaseURL == "" || im.APIBaseURL == "" {
			return fmt.Errorf("import.upload_base_url and import.api_base_url are required for mode %q", mode)
		}
		if im.AccessToken == "" {
			return fmt.Errorf("import.access_token is required for mode %q", mode)
		}
	}

	if cfg.Email.Enabled {
		if cfg.Email.APIKey == "" || cfg.Email.From == "" || len(cfg.Email.To) == 0 || cfg.Email.Subject == "" {
			return fmt.Errorf("email requires api_key, from, to and subject when enabled")
		}
	}
	if cfg.Publish.Enabled && cfg.Publish.URL == "" {
		return fmt.Errorf("publish.url is required when publish is enabled")
	}

	return nil
}
