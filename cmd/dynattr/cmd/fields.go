package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/storage"
)

func newFieldsCmd() *cobra.Command {
	fieldsCmd := &cobra.Command{
		Use:   "fields <id>",
		Short: "List field names of a record",
		Long: `List the fixed columns followed by the top-level attribute keys.

With --deep every nested attribute path is listed, prefixed by the name of
the dynamic column.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			deep, _ := cmd.Flags().GetBool("deep")

			return withStore(cmd, func(store *storage.RowStore) error {
				r, err := store.Get(id)
				if err != nil {
					return err
				}
				names := r.FieldNames()
				if deep {
					if names, err = r.AllFieldNames(); err != nil {
						return err
					}
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}

	fieldsCmd.Flags().Bool("deep", false, "List every nested attribute path")
	return fieldsCmd
}
