// Package container provides dependency injection.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/adapters/database/duckdb"
	"github.com/satishbabariya/querygate/internal/adapters/database/mysql"
	"github.com/satishbabariya/querygate/internal/adapters/database/postgres"
	"github.com/satishbabariya/querygate/internal/adapters/database/sqlite"
	"github.com/satishbabariya/querygate/internal/adapters/telemetry"
	"github.com/satishbabariya/querygate/internal/config"
	"github.com/satishbabariya/querygate/internal/core/catalog"
	"github.com/satishbabariya/querygate/internal/core/introspection"
	"github.com/satishbabariya/querygate/internal/core/query/compiler"
	querydomain "github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/core/query/executor"
	"github.com/satishbabariya/querygate/internal/debug"
	"github.com/satishbabariya/querygate/internal/service"
)

// Container holds all application dependencies.
type Container struct {
	// Configuration
	config *config.Config
	logger *slog.Logger

	// Adapters
	dbAdapter database.Adapter
	telemetry telemetry.Telemetry

	// Core
	reflector *introspection.Reflector
	catalog   *catalog.Catalog
	compiler  *compiler.SQLCompiler

	// Services
	queryService *service.QueryService
}

// NewContainer creates a new dependency injection container. Nothing is
// connected until Connect is called.
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config: cfg,
		logger: debug.With("component", "container"),
	}

	// Initialize adapters
	var err error
	c.dbAdapter, err = createDatabaseAdapter(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database adapter: %w", err)
	}

	c.telemetry, err = telemetry.NewTelemetry(&telemetry.Config{
		Type:    cfg.Telemetry.Type,
		Buckets: cfg.Telemetry.Buckets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry: %w", err)
	}

	// Initialize schema reflection
	introspector, err := introspection.ForDialect(c.dbAdapter.GetDialect())
	if err != nil {
		return nil, err
	}
	c.reflector = introspection.NewReflector(c.dbAdapter, introspector, cfg.Catalog.ReservedPrefixes...)

	// Convert database dialect to query dialect
	queryDialect := querydomain.SQLDialect(c.dbAdapter.GetDialect())
	c.compiler = compiler.NewSQLCompiler(queryDialect, compiler.WithTemplateCache(cfg.Query.PlanCacheSize))

	c.catalog = catalog.New(c.reflector,
		catalog.WithLogger(debug.With("component", "catalog")),
		catalog.OnRefresh(func(tables int, took time.Duration) {
			c.compiler.ClearCache()
			c.telemetry.RecordRefresh(context.Background(), telemetry.RefreshInfo{Tables: tables, Duration: took})
		}),
	)

	// Initialize query service
	queryExec := executor.NewQueryExecutor(c.dbAdapter, debug.With("component", "executor"))
	c.queryService = service.NewQueryService(
		c.catalog,
		c.compiler,
		queryExec,
		c.telemetry,
		debug.With("component", "service"),
	)

	return c, nil
}

// createDatabaseAdapter creates a database adapter based on provider.
func createDatabaseAdapter(cfg config.DatabaseConfig) (database.Adapter, error) {
	dbConfig := database.Config{
		Provider:        cfg.Provider,
		URL:             cfg.URL,
		MaxConnections:  cfg.MaxConnections,
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxIdleTime:     cfg.MaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectTimeout:  cfg.ConnectTimeout,
		HealthCheck:     cfg.HealthCheckInterval,
		ReadOnly:        cfg.ReadOnly,
	}

	switch cfg.Provider {
	case "postgres":
		return postgres.NewPostgresAdapter(dbConfig)
	case "mysql":
		return mysql.NewMySQLAdapter(dbConfig)
	case "sqlite":
		return sqlite.NewSQLiteAdapter(dbConfig)
	case "duckdb":
		return duckdb.NewDuckDBAdapter(dbConfig)
	default:
		return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedProvider, cfg.Provider)
	}
}

// Connect opens the database and warns when the backend version is older
// than supported.
func (c *Container) Connect(ctx context.Context) error {
	if err := c.dbAdapter.Connect(ctx); err != nil {
		return err
	}
	version, err := c.reflector.CheckVersion(ctx, c.logger)
	if err != nil {
		c.logger.Warn("could not read backend version", "error", err)
		return nil
	}
	c.logger.Debug("connected", "provider", c.config.Database.Provider, "version", version)
	return nil
}

// Warm builds the catalog now instead of on first use.
func (c *Container) Warm(ctx context.Context) error {
	return c.catalog.Refresh(ctx)
}

// Close releases the database and flushes telemetry.
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	if err := c.telemetry.Close(ctx); err != nil {
		firstErr = err
	}
	if err := c.dbAdapter.Disconnect(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// DatabaseAdapter returns the database adapter.
func (c *Container) DatabaseAdapter() database.Adapter {
	return c.dbAdapter
}

// Reflector returns the schema reflector.
func (c *Container) Reflector() *introspection.Reflector {
	return c.reflector
}

// Catalog returns the schema catalog.
func (c *Container) Catalog() *catalog.Catalog {
	return c.catalog
}

// QueryService returns the query service.
func (c *Container) QueryService() *service.QueryService {
	return c.queryService
}

// WatchPath returns the database file for file-backed providers.
func (c *Container) WatchPath() (string, bool) {
	fb, ok := c.dbAdapter.(database.FileBacked)
	if !ok {
		return "", false
	}
	path := fb.FilePath()
	return path, path != "" && path != ":memory:"
}
