package commands

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/ui"
	"github.com/satishbabariya/querygate/internal/utils/container"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables that can be queried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withContainer(cmd, func(ctx context.Context, c *container.Container) error {
				tables, err := c.QueryService().ListTables(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(map[string][]string{"table_names": tables})
				}
				ui.PrintList(tables)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show a table's columns and declared types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withContainer(cmd, func(ctx context.Context, c *container.Container) error {
				info, err := c.QueryService().TableInfo(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(info)
				}
				return ui.PrintColumns(info)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeJSON(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
