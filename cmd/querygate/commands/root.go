// Package commands implements CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querygate/internal/config"
	"github.com/satishbabariya/querygate/internal/debug"
	"github.com/satishbabariya/querygate/internal/ui"
	"github.com/satishbabariya/querygate/internal/utils/container"
)

// App carries global flags and the lazily built container shared by
// subcommands.
type App struct {
	ConfigPath  string
	DatabaseURL string
	Provider    string
	LogLevel    string
	LogFormat   string
	NoColor     bool

	cfg       *config.Config
	container *container.Container
	logCloser io.Closer
}

// NewRootCommand creates the querygate command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "querygate",
		Short: "Read-only query gateway for relational databases",
		Long: `querygate exposes a relational database through a small, validated
query interface: list tables, describe them, and run equality-filtered
SELECTs. Every table and column name is checked against the live schema
before any SQL reaches the database.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.ConfigPath, "config", "", "config file (default searches ./.querygate.yaml, ~/.querygate.yaml)")
	flags.StringVar(&app.DatabaseURL, "database-url", "", "database URL or file path")
	flags.StringVar(&app.Provider, "provider", "", "database provider: sqlite, postgres, mysql, duckdb")
	flags.StringVar(&app.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&app.LogFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&app.NoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewServeCommand(app))
	rootCmd.AddCommand(NewTablesCommand(app))
	rootCmd.AddCommand(NewDescribeCommand(app))
	rootCmd.AddCommand(NewQueryCommand(app))
	rootCmd.AddCommand(NewDocsCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewVersionCommand(app))

	return rootCmd
}

// setup loads configuration, applies flag overrides and starts logging.
func (a *App) setup(cmd *cobra.Command) error {
	if a.NoColor {
		ui.DisableColor()
	}
	if !needsConfig(cmd) {
		return nil
	}

	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.DatabaseURL != "" {
		cfg.Database.URL = a.DatabaseURL
	}
	if a.Provider != "" {
		cfg.Database.Provider = config.NormalizeProvider(a.Provider)
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	if a.LogFormat != "" {
		cfg.Log.Format = a.LogFormat
	}

	closer, err := debug.Init(debug.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: ui.Err,
	})
	if err != nil {
		return err
	}
	a.logCloser = closer
	a.cfg = cfg
	return nil
}

// needsConfig reports whether cmd talks to a database.
func needsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version":
		backend, _ := cmd.Flags().GetBool("backend")
		return backend
	case "docs", "init", "help", "completion":
		return false
	}
	return true
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Container builds and connects the container on first use.
func (a *App) Container(ctx context.Context) (*container.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	if a.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	c, err := container.NewContainer(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	a.container = c
	return c, nil
}

// withContainer runs fn with a connected container and closes it afterwards.
func (a *App) withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *container.Container) error) error {
	ctx := cmd.Context()
	c, err := a.Container(ctx)
	if err != nil {
		return err
	}
	defer a.closeContainer(ctx)
	return fn(ctx, c)
}

func (a *App) closeContainer(ctx context.Context) error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close(ctx)
	a.container = nil
	return err
}

// Close releases the container and the log file.
func (a *App) Close(ctx context.Context) error {
	firstErr := a.closeContainer(ctx)
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.logCloser = nil
	}
	return firstErr
}
