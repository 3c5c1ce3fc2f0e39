package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/attr"
	"github.com/ssargent/dynattr/pkg/dyncol"
	"github.com/ssargent/dynattr/pkg/sqlbind"
	"github.com/ssargent/dynattr/pkg/storage"
)

func newBuildCmd() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build [id]",
		Short: "Show the COLUMN_CREATE expression for a record",
		Long: `Print the expression and parameter bindings that saving a record would
send for its dynamic column. With --json the attribute tree is taken from
a JSON object instead of a stored record.

With --table the full UPDATE statement is printed; --positional rewrites
the named placeholders into "?" markers in binding order.

Examples:
  dynattr build 2Jz1dE8ZxXbq7yVvYcP7QpM3n0H
  dynattr build --json '{"prefs":{"theme":"dark"}}'
  dynattr build --json '{"a":1}' --table users --key-value 42 --positional`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			literal, _ := cmd.Flags().GetString("json")
			table, _ := cmd.Flags().GetString("table")
			keyColumn, _ := cmd.Flags().GetString("key-column")
			keyValue, _ := cmd.Flags().GetString("key-value")
			positional, _ := cmd.Flags().GetBool("positional")
			cfg := configFrom(cmd)

			var expr dyncol.Expression
			switch {
			case literal != "" && len(args) == 0:
				v, err := attr.ParseJSON([]byte(literal))
				if err != nil {
					return fmt.Errorf("invalid JSON: %w", err)
				}
				if v.Kind() != attr.KindTree {
					return fmt.Errorf("expected a JSON object, got %s", v.Kind())
				}
				if expr, err = dyncol.NewMariaDB().Build(v.Tree()); err != nil {
					return err
				}
			case literal == "" && len(args) == 1:
				id, err := parseRecordID(args[0])
				if err != nil {
					return err
				}
				err = withStore(cmd, func(store *storage.RowStore) error {
					r, err := store.Get(id)
					if err != nil {
						return err
					}
					expr, err = r.OnBeforeSave()
					return err
				})
				if err != nil {
					return err
				}
			default:
				return errors.New("pass either a record id or --json")
			}

			query := expr.SQL
			params := expr.Params
			if table != "" {
				if keyValue == "" && len(args) == 1 {
					keyValue = args[0]
				}
				if keyValue == "" {
					return errors.New("--key-value is required with --table and --json")
				}
				query = sqlbind.UpdateStatement(table, keyColumn, cfg.Schema.DynamicColumn, expr)
				params = append(dyncol.Params{{Name: ":id", Value: keyValue}}, expr.Params...)
			}
			return printExpression(cmd.OutOrStdout(), query, params, positional)
		},
	}

	buildCmd.Flags().String("json", "", "Build from a JSON object instead of a stored record")
	buildCmd.Flags().String("table", "", "Wrap the expression in an UPDATE of this table")
	buildCmd.Flags().String("key-column", "id", "Key column used by --table")
	buildCmd.Flags().String("key-value", "", "Key bound to :id by --table (defaults to the record id)")
	buildCmd.Flags().Bool("positional", false, "Rewrite named placeholders into ? markers")
	return buildCmd
}

func printExpression(w io.Writer, query string, params dyncol.Params, positional bool) error {
	if positional {
		bound, args, err := sqlbind.Bind(query, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, bound)
		for i, a := range args {
			fmt.Fprintf(w, "  $%d = %#v\n", i+1, a)
		}
		return nil
	}

	fmt.Fprintln(w, query)
	for _, p := range params {
		fmt.Fprintf(w, "  %s = %#v\n", p.Name, p.Value)
	}
	return nil
}
