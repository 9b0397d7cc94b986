package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/config"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/testutil"
)

func sqliteConfig(url string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Provider: "sqlite", URL: url, ReadOnly: true},
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8000, MaxBodyBytes: 1 << 20},
		Query:    config.QueryConfig{PlanCacheSize: 8},
		Catalog:  config.CatalogConfig{ReservedPrefixes: []string{"Play"}},
		Telemetry: config.TelemetryConfig{
			Type: "memory",
		},
	}
}

func TestContainerWiring(t *testing.T) {
	ctx := context.Background()
	path := testutil.NewChinookDB(t)

	c, err := NewContainer(sqliteConfig(path))
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	defer c.Close(ctx)

	assert.Equal(t, database.SQLite, c.DatabaseAdapter().GetDialect())
	assert.Equal(t, domain.SQLite, c.QueryService().Compiler().Dialect())

	require.NoError(t, c.Warm(ctx))
	tables, err := c.QueryService().ListTables(ctx)
	require.NoError(t, err)
	assert.NotContains(t, tables, "Playlist")
	assert.Contains(t, tables, "Album")

	result, err := c.QueryService().RunQuery(ctx, domain.QueryRequest{
		Table:   "Artist",
		Filters: map[string]any{"ArtistId": 3},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, domain.Text("Aerosmith"), result.Rows[0][1].Value)

	snap := c.QueryService().Telemetry().Snapshot()
	assert.Equal(t, int64(1), snap.Refreshes)
	assert.Equal(t, 7, snap.CatalogTables)

	watched, ok := c.WatchPath()
	assert.True(t, ok)
	assert.Equal(t, path, watched)
}

func TestContainerRejectsBadConfig(t *testing.T) {
	cfg := sqliteConfig("music.db")
	cfg.Database.Provider = "oracle"
	_, err := NewContainer(cfg)
	assert.Error(t, err)

	cfg = sqliteConfig("music.db")
	cfg.Telemetry.Type = "statsd"
	_, err = NewContainer(cfg)
	assert.Error(t, err)
}

func TestCreateDatabaseAdapter(t *testing.T) {
	tests := []struct {
		provider string
		url      string
		dialect  database.SQLDialect
	}{
		{"sqlite", "music.db", database.SQLite},
		{"postgres", "postgres://reader@localhost/music", database.PostgreSQL},
		{"mysql", "reader@tcp(localhost:3306)/music", database.MySQL},
		{"duckdb", "music.duckdb", database.DuckDB},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			adapter, err := createDatabaseAdapter(config.DatabaseConfig{Provider: tt.provider, URL: tt.url})
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, adapter.GetDialect())
		})
	}

	_, err := createDatabaseAdapter(config.DatabaseConfig{Provider: "oracle", URL: "x"})
	assert.ErrorIs(t, err, database.ErrUnsupportedProvider)
}

func TestConnectMissingDatabase(t *testing.T) {
	c, err := NewContainer(sqliteConfig(t.TempDir() + "/absent.db"))
	require.NoError(t, err)
	assert.Error(t, c.Connect(context.Background()))
}
