package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/core/introspection"
	"github.com/satishbabariya/querygate/internal/ui"
	"github.com/satishbabariya/querygate/internal/utils/container"
)

// Version information (set at build time).
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(app *App) *cobra.Command {
	var backend bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information. With --backend, also connect and report the database version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersionInfo()
			if !backend {
				return nil
			}
			return app.withContainer(cmd, printBackendVersion)
		},
	}

	cmd.Flags().BoolVar(&backend, "backend", false, "report the database version")
	return cmd
}

func printVersionInfo() {
	fmt.Fprintf(ui.Out, "querygate version %s\n", Version)
	fmt.Fprintf(ui.Out, "  Git Commit: %s\n", GitCommit)
	fmt.Fprintf(ui.Out, "  Go Version: %s\n", runtime.Version())
	fmt.Fprintf(ui.Out, "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func printBackendVersion(ctx context.Context, c *container.Container) error {
	reflector := c.Reflector()
	raw, err := reflector.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ui.Out, "  Database: %s %s\n", c.Config().Database.Provider, raw)

	minimum := reflector.MinimumVersion()
	ok, err := introspection.SatisfiesMinimum(raw, minimum)
	switch {
	case err != nil:
		ui.PrintWarning("could not parse database version: %v", err)
	case !ok:
		ui.PrintWarning("database is older than the supported minimum %s", minimum)
	}
	return nil
}
