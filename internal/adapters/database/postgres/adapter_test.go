package postgres

import (
	"errors"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querygate/internal/adapters/database"
)

func TestBuildDSN(t *testing.T) {
	t.Run("url", func(t *testing.T) {
		dsn, err := BuildDSN("postgres://u:p@localhost:5432/chinook?sslmode=disable", true, 10)
		require.NoError(t, err)
		assert.Equal(t,
			"postgres://u:p@localhost:5432/chinook?connect_timeout=10&default_transaction_read_only=on&sslmode=disable",
			dsn)
	})

	t.Run("url keeps explicit values", func(t *testing.T) {
		dsn, err := BuildDSN("postgresql://localhost/chinook?connect_timeout=3", false, 10)
		require.NoError(t, err)
		assert.Equal(t, "postgresql://localhost/chinook?connect_timeout=3", dsn)
	})

	t.Run("key value", func(t *testing.T) {
		dsn, err := BuildDSN("host=localhost dbname=chinook", true, 5)
		require.NoError(t, err)
		assert.Equal(t, "host=localhost dbname=chinook connect_timeout=5 default_transaction_read_only=on", dsn)
	})
}

func TestNewPostgresAdapterRequiresURL(t *testing.T) {
	_, err := NewPostgresAdapter(database.Config{Provider: "postgres"})
	assert.Error(t, err)
}

func TestIsUnavailable(t *testing.T) {
	a := &PostgresAdapter{}

	assert.True(t, a.IsUnavailable(&pq.Error{Code: "08006"}))
	assert.True(t, a.IsUnavailable(&pq.Error{Code: "53300"}))
	assert.True(t, a.IsUnavailable(&pq.Error{Code: "57P01"}))
	assert.True(t, a.IsUnavailable(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.False(t, a.IsUnavailable(&pq.Error{Code: "42703"}))
	assert.False(t, a.IsUnavailable(&pq.Error{Code: "22P02"}))
}
