package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/config"
	"github.com/satishbabariya/querygate/internal/ui"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			ui.PrintSuccess("Created %s", path)
			fmt.Fprintln(ui.Out, "\nNext steps:")
			fmt.Fprintln(ui.Out, "1. Point database.url at your database, or set DATABASE_URL in .env")
			fmt.Fprintln(ui.Out, "2. Run `querygate tables` to check the connection")
			fmt.Fprintln(ui.Out, "3. Run `querygate serve` to start the gateway")
			return nil
		},
	}
}
