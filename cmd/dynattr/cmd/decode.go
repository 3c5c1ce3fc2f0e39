package cmd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/dynattr/pkg/dyncol"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [payload]",
		Short: "Decode a COLUMN_JSON payload",
		Long: `Decode the text MariaDB returns for COLUMN_JSON into an attribute tree
and print it as JSON. Raw control characters are tolerated and base64
armored binary values are restored. Without an argument the payload is
read from stdin.

Example:
  mysql -N -e 'SELECT COLUMN_JSON(attributes) FROM users WHERE id = 1' | dynattr decode`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			if len(args) == 1 {
				payload = []byte(args[0])
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read payload: %w", err)
				}
				payload = bytes.TrimRight(data, "\r\n")
			}

			tree, err := dyncol.NewMariaDB().Decode(payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tree)
		},
	}
}
