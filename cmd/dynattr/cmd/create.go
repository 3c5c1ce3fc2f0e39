/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/ctxlog"
	"github.com/ssargent/dynattr/pkg/storage"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [json-object]",
		Short: "Create a record",
		Long: `Create a record from a JSON object and print its id. Keys naming fixed
columns fill those columns; every other key becomes a dynamic attribute.

Example:
  dynattr create '{"name":"ada","prefs":{"theme":"dark"}}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := "{}"
			if len(args) == 1 {
				body = args[0]
			}
			v, err := attr.ParseJSON([]byte(body))
			if err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}
			if v.Kind() != attr.KindTree {
				return fmt.Errorf("expected a JSON object, got %s", v.Kind())
			}

			return withStore(cmd, func(store *storage.RowStore) error {
				r := store.NewRecord()
				var setErr error
				v.Tree().Range(func(key string, child attr.Value) bool {
					setErr = r.Set(key, child)
					return setErr == nil
				})
				if setErr != nil {
					return setErr
				}

				id, err := store.Create(r)
				if err != nil {
					return err
				}
				ctxlog.FromContext(cmd.Context()).Debug("created record", slog.String("id", id.String()))
				fmt.Fprintln(cmd.OutOrStdout(), id.String())
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List record ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *storage.RowStore) error {
				ids, err := store.List()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id.String())
				}
				return nil
			})
		},
	}
}
