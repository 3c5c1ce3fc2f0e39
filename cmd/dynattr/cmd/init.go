/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with a generated API key",
		Long: `Write a configuration file with defaults and a freshly generated API key.

The schema section names the fixed columns and the dynamic column. Edit it
before creating records; existing rows are not migrated.

Examples:
  dynattr init
  dynattr init --config ./dynattr.yaml --data-dir ./data --print-keys`,
		// the config may not exist yet, so skip the root loader
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			dataDir, _ := cmd.Flags().GetString("data-dir")
			force, _ := cmd.Flags().GetBool("force")
			printKeys, _ := cmd.Flags().GetBool("print-keys")

			if config.ConfigExists(path) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, dataDir)
			if err != nil {
				return err
			}

			cmd.Printf("Configuration written to %s\n", path)
			cmd.Printf("Data directory: %s\n", cfg.DataDir)
			cmd.Printf("Dynamic column: %s\n", cfg.Schema.DynamicColumn)
			if printKeys {
				cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			}
			return nil
		},
	}

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-keys", false, "Print the generated API key")
	return initCmd
}
