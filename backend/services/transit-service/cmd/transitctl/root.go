package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transitkiosk/backend/libs/logging"
	"transitkiosk/backend/services/transit-service/internal/app"
	"transitkiosk/backend/services/transit-service/internal/config"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

var version = "dev"

type cli struct {
	configPath string
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "transitctl",
		Short:         "Operate the transit card ledger",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewCLILogger()
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file (defaults to CONFIG_FILE)")

	root.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.cardCmd(),
		c.apiKeyCmd(),
		hashPasswordCmd(),
	)
	return root
}

func (c *cli) loadConfig() (*config.Config, error) {
	return config.LoadFile(c.configPath)
}

// withServices opens the configured store for the duration of fn.
func (c *cli) withServices(ctx context.Context, fn func(*app.Services) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := app.OpenStore(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer closeStore(store, c.logger)
	return fn(app.NewServices(store, nil, nil, nil, c.logger))
}

func closeStore(store repository.Store, logger *zap.Logger) {
	if err := store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
