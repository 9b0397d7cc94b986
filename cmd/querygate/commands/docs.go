package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/adapters/gateway"
	"github.com/satishbabariya/querygate/internal/ui"
)

// NewDocsCommand creates the docs command.
func NewDocsCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Show the HTTP API reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				_, err := fmt.Fprint(ui.Out, gateway.Markdown())
				return err
			}
			return ui.PrintMarkdown(gateway.Markdown())
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}
