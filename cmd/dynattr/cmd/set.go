package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/record"
	"github.com/ssargent/dynattr/pkg/storage"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <path> <value>",
		Short: "Set an attribute",
		Long: `Assign a value at a dotted path, creating intermediate containers.

The value is parsed as JSON; anything that is not valid JSON is stored as
a plain string.

Examples:
  dynattr set 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H prefs.theme dark
  dynattr set 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H prefs.volume 7
  dynattr set 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H prefs '{"theme":"dark","volume":7}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			path, v := args[1], parseValueArg(args[2])

			return withStore(cmd, func(store *storage.RowStore) error {
				_, err := store.Update(id, func(r *record.Record) error {
					return r.Set(path, v)
				})
				if err != nil {
					return err
				}
				cmd.Printf("Set %s = %s\n", path, v)
				return nil
			})
		},
	}
}

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <id> <path>",
		Short: "Unset an attribute",
		Long: `Null a fixed column, or drop a dynamic attribute from the stored column.

Example:
  dynattr unset 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H prefs.theme`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			path := args[1]

			return withStore(cmd, func(store *storage.RowStore) error {
				_, err := store.Update(id, func(r *record.Record) error {
					return r.Unset(path)
				})
				if err != nil {
					return err
				}
				cmd.Printf("Unset %s\n", path)
				return nil
			})
		},
	}
}

// parseValueArg reads a command line value as JSON, falling back to a string
func parseValueArg(s string) attr.Value {
	v, err := attr.ParseJSON([]byte(s))
	if err != nil {
		return attr.String(s)
	}
	return v
}
