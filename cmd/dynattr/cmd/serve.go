/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/api"
	"github.com/ssargent/dynattr/pkg/config"
	"github.com/ssargent/dynattr/pkg/ctxlog"
	"github.com/ssargent/dynattr/pkg/storage"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the dynattr REST API server over the configured store.

Requests under /api/v1 require the X-API-Key header. Prometheus metrics
are served at /metrics and the API description at /swagger/doc.json.

Examples:
  dynattr serve --api-key=mysecretkey --port=8080
  dynattr serve --config ./dynattr.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			applyServeFlags(cmd, cfg)
			return runServer(cmd, cfg)
		},
	}

	addServeFlags(serveCmd)
	return serveCmd
}

func newUpCmd() *cobra.Command {
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap configuration if missing and start the server",
		Long: `Create a configuration file with a generated API key when none exists,
then start the REST API server. This is the quickest way to get dynattr
running.

Examples:
  dynattr up
  dynattr up --data-dir ./mydata --port 9000 --print-keys`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			if !config.ConfigExists(path) {
				dataDir, _ := cmd.Flags().GetString("data-dir")
				cfg, err := config.BootstrapConfig(path, dataDir)
				if err != nil {
					return err
				}
				cmd.Printf("Configuration created at %s\n", path)
				if printKeys, _ := cmd.Flags().GetBool("print-keys"); printKeys {
					cmd.Printf("API key: %s\n", cfg.Security.APIKey)
				}
			}
			return cmd.Root().PersistentPreRunE(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			applyServeFlags(cmd, cfg)
			return runServer(cmd, cfg)
		},
	}

	addServeFlags(upCmd)
	upCmd.Flags().Bool("print-keys", false, "Print the generated API key")
	return upCmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	cmd.Flags().String("api-key", "", "API key for client authentication")
}

// applyServeFlags overrides config values with flags that were set explicitly
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
	}
}

func runServer(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
		return errors.New("an API key is required: pass --api-key or run 'dynattr init'")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withStore(cmd, func(store *storage.RowStore) error {
		cmd.Printf("Starting dynattr server on %s:%d\n", cfg.Bind, cfg.Port)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, store, api.ServerConfig{
			Port:    cfg.Port,
			Bind:    cfg.Bind,
			APIKey:  cfg.Security.APIKey,
			Logger:  ctxlog.FromContext(ctx),
			Metrics: container.GetMetrics(),
		}, container.GetRegistry())
	})
}
