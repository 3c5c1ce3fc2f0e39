/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/config"
	"github.com/ssargent/dynattr/pkg/ctxlog"
	"github.com/ssargent/dynattr/pkg/di"
	"github.com/ssargent/dynattr/pkg/storage"
)

type contextKey string

const configKey contextKey = "config"

var container *di.Container

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// newRootCmd builds the command tree. A fresh tree per run keeps flag
// state from leaking between executions.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dynattr",
		Short: "dynattr - dynamic attributes over MariaDB dynamic columns",
		Long: `dynattr manages records that pair fixed relational columns with a
MariaDB dynamic column holding a tree of nested attributes.

Records live in an embedded store under --data-dir. Attribute paths are
dotted: "prefs.theme" addresses key "theme" inside "prefs".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			logger := cfg.Logging.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(logger)

			ctx := ctxlog.WithLogger(cmd.Context(), logger)
			cmd.SetContext(context.WithValue(ctx, configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default ~/.config/dynattr/config.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the store")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newListCmd(),
		newDeleteCmd(),
		newSetCmd(),
		newGetCmd(),
		newUnsetCmd(),
		newFieldsCmd(),
		newBuildCmd(),
		newDecodeCmd(),
		newServeCmd(),
		newUpCmd(),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// resolveConfig loads the config file when present and applies flag overrides
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)

	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

// withStore opens the row store for the duration of fn
func withStore(cmd *cobra.Command, fn func(*storage.RowStore) error) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}
	cfg := configFrom(cmd)

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := container.GetStoreFactory()(cfg.DataDir,
		storage.Schema{
			DynamicColumn: cfg.Schema.DynamicColumn,
			FixedFields:   cfg.Schema.FixedFields,
		},
		storage.WithLogger(ctxlog.FromContext(cmd.Context())),
		storage.WithMetrics(container.GetMetrics()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	return fn(store)
}
