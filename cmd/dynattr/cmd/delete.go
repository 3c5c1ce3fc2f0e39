package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/storage"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Long: `Delete a record and its dynamic column.

Example:
  dynattr delete 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(store *storage.RowStore) error {
				if err := store.Delete(id); err != nil {
					return err
				}
				cmd.Printf("Deleted record %s\n", id)
				return nil
			})
		},
	}
}
