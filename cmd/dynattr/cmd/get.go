package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/api"
	"github.com/ssargent/dynattr/pkg/storage"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id> [path]",
		Short: "Get a record or one of its attributes",
		Long: `Print a record as JSON, or the value found at a dotted path.

Fixed columns are resolved first; any other path is looked up in the
dynamic attribute tree.

Examples:
  dynattr get 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H
  dynattr get 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H prefs.theme`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}

			return withStore(cmd, func(store *storage.RowStore) error {
				r, err := store.Get(id)
				if err != nil {
					return err
				}

				if len(args) == 1 {
					fields := make(map[string]any)
					for _, name := range r.Fixed().FieldNames() {
						v, err := r.Get(name)
						if err != nil {
							return err
						}
						fields[name] = v.Interface()
					}
					return printJSON(cmd.OutOrStdout(), api.RecordResponse{
						ID:         id.String(),
						Fields:     fields,
						Attributes: r.Attributes(),
					})
				}

				path := args[1]
				set, err := r.IsSet(path)
				if err != nil {
					return err
				}
				if !set {
					return fmt.Errorf("%s is not set", path)
				}
				v, err := r.Get(path)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func parseRecordID(s string) (ksuid.KSUID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("invalid record id %q: %w", s, err)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
