package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/adapters/gateway"
	"github.com/satishbabariya/querygate/internal/debug"
	"github.com/satishbabariya/querygate/internal/ui"
	"github.com/satishbabariya/querygate/internal/utils/container"
	"github.com/satishbabariya/querygate/internal/watch"
)

// NewServeCommand creates the serve command.
func NewServeCommand(app *App) *cobra.Command {
	var (
		host      string
		port      int
		watchFile bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long: `Start the HTTP gateway. The schema catalog is built before the first
request is accepted; with --watch it is rebuilt whenever the database file
changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Catalog.Watch = watchFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return app.withContainer(cmd, runServe)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to bind")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "port to listen on")
	cmd.Flags().BoolVar(&watchFile, "watch", false, "rebuild the catalog when the database file changes")

	return cmd
}

func runServe(ctx context.Context, c *container.Container) error {
	cfg := c.Config()

	if err := c.Warm(ctx); err != nil {
		return err
	}

	if cfg.Catalog.Watch {
		if path, ok := c.WatchPath(); ok {
			w, err := watch.NewWatcher(path, cfg.Catalog.WatchDebounce, debug.With("component", "watch"), c.QueryService().Refresh)
			if err != nil {
				return err
			}
			w.Start(ctx)
			defer w.Stop()
			ui.PrintInfo("Watching %s for schema changes", path)
		} else {
			ui.PrintWarning("--watch ignored: %s databases are not file based", cfg.Database.Provider)
		}
	}

	srv := gateway.NewServer(c.QueryService(), c.DatabaseAdapter(), gateway.Config{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	}, debug.With("component", "gateway"))

	ui.PrintSuccess("Serving %s database on http://%s", cfg.Database.Provider, cfg.Server.Addr())
	return srv.ListenAndServe(ctx)
}
