package executor_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/adapters/database/sqlite"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/core/query/executor"
	"github.com/satishbabariya/querygate/internal/testutil"
)

func connect(t *testing.T) *sqlite.SQLiteAdapter {
	t.Helper()
	adapter, err := sqlite.NewSQLiteAdapter(database.Config{
		Provider: "sqlite",
		URL:      testutil.NewChinookDB(t),
		ReadOnly: true,
	})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	t.Cleanup(func() { adapter.Disconnect(context.Background()) })
	return adapter
}

func TestExecute(t *testing.T) {
	adapter := connect(t)
	exec := executor.NewQueryExecutor(adapter, nil)

	stmt := &domain.Statement{
		SQL:     `SELECT "Track"."TrackId", "Track"."Composer", "Track"."UnitPrice" FROM "Track" WHERE "Track"."AlbumId" = :AlbumId_1`,
		Args:    []any{sql.Named("AlbumId_1", int64(2))},
		Dialect: domain.SQLite,
	}
	projection := []domain.ColumnDescriptor{
		{Name: "TrackId", DeclaredType: "INTEGER"},
		{Name: "Composer", DeclaredType: "NVARCHAR(220)"},
		{Name: "UnitPrice", DeclaredType: "NUMERIC(10,2)"},
	}

	result, err := exec.Execute(context.Background(), stmt, projection)
	require.NoError(t, err)
	assert.Equal(t, stmt.SQL, result.Query)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, "TrackId", row[0].Name)
	assert.Equal(t, domain.Int(2), row[0].Value)
	assert.True(t, row[1].Value.IsNull())
	assert.Equal(t, domain.Float(0.99), row[2].Value)

	assert.Zero(t, adapter.Stats().InUse)
}

func TestExecuteNoRows(t *testing.T) {
	exec := executor.NewQueryExecutor(connect(t), nil)

	result, err := exec.Execute(context.Background(), &domain.Statement{
		SQL:  `SELECT "Artist"."Name" FROM "Artist" WHERE "Artist"."ArtistId" = :ArtistId_1`,
		Args: []any{sql.Named("ArtistId_1", int64(999))},
	}, []domain.ColumnDescriptor{{Name: "Name", DeclaredType: "NVARCHAR(120)"}})
	require.NoError(t, err)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestExecuteDateAndText(t *testing.T) {
	exec := executor.NewQueryExecutor(connect(t), nil)

	result, err := exec.Execute(context.Background(), &domain.Statement{
		SQL: `SELECT "Invoice"."InvoiceDate", "Invoice"."BillingCity", "Invoice"."Total" FROM "Invoice" WHERE "Invoice"."InvoiceId" = :InvoiceId_1`,
		Args: []any{sql.Named("InvoiceId_1", int64(1))},
	}, []domain.ColumnDescriptor{
		{Name: "InvoiceDate", DeclaredType: "DATETIME"},
		{Name: "BillingCity", DeclaredType: "NVARCHAR(40)"},
		{Name: "Total", DeclaredType: "NUMERIC(10,2)"},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	assert.Equal(t, domain.Text("2009-01-01 00:00:00"), result.Rows[0][0].Value)
	assert.Equal(t, domain.Text("Stuttgart"), result.Rows[0][1].Value)
	assert.Equal(t, domain.Float(1.98), result.Rows[0][2].Value)
}

const datesSchema = `
CREATE TABLE T (Id INTEGER, D DATE, DT DATETIME);
INSERT INTO T VALUES
	(1, '2009-01-01', 'not a date'),
	(2, '1999-12-31', 5),
	(3, '2020-02-02', '2009-01-01T10:00:00.5');
`

func connectDates(t *testing.T) *sqlite.SQLiteAdapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dates.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(datesSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	adapter, err := sqlite.NewSQLiteAdapter(database.Config{Provider: "sqlite", URL: path, ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, adapter.Connect(context.Background()))
	t.Cleanup(func() { adapter.Disconnect(context.Background()) })
	return adapter
}

var datesProjection = []domain.ColumnDescriptor{
	{Name: "Id", DeclaredType: "INTEGER"},
	{Name: "D", DeclaredType: "DATE"},
	{Name: "DT", DeclaredType: "DATETIME"},
}

func TestExecuteDateColumns(t *testing.T) {
	exec := executor.NewQueryExecutor(connectDates(t), nil)

	result, err := exec.Execute(context.Background(), &domain.Statement{
		SQL: `SELECT "T"."Id", "T"."D", "T"."DT" FROM "T" WHERE "T"."Id" > 1 ORDER BY "T"."Id"`,
	}, datesProjection)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, domain.Text("1999-12-31"), result.Rows[0][1].Value)
	// Integers in a DATETIME column come back from the driver as Unix seconds.
	assert.Equal(t, domain.Text("1970-01-01 00:00:05"), result.Rows[0][2].Value)

	assert.Equal(t, domain.Text("2020-02-02"), result.Rows[1][1].Value)
	assert.Equal(t, domain.Text("2009-01-01 10:00:00.5"), result.Rows[1][2].Value)
}

func TestExecuteUnparseableDate(t *testing.T) {
	adapter := connectDates(t)
	exec := executor.NewQueryExecutor(adapter, nil)

	stmt := &domain.Statement{
		SQL:  `SELECT "T"."Id", "T"."D", "T"."DT" FROM "T" WHERE "T"."Id" = :Id_1`,
		Args: []any{sql.Named("Id_1", int64(1))},
	}
	_, err := exec.Execute(context.Background(), stmt, datesProjection)

	var execErr *domain.BackendExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, stmt.SQL, execErr.Query)
	assert.Contains(t, err.Error(), "unparseable date/time value")
	assert.Zero(t, adapter.Stats().InUse)
}

func TestExecuteBackendRejects(t *testing.T) {
	adapter := connect(t)
	exec := executor.NewQueryExecutor(adapter, nil)

	_, err := exec.Execute(context.Background(), &domain.Statement{
		SQL: `SELECT "Album"."Nope" FROM "Album"`,
	}, []domain.ColumnDescriptor{{Name: "Nope"}})

	var execErr *domain.BackendExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Error(), "Nope")
	assert.False(t, domain.IsUnavailable(err))
	assert.Zero(t, adapter.Stats().InUse)
}

func TestExecuteProjectionMismatch(t *testing.T) {
	exec := executor.NewQueryExecutor(connect(t), nil)

	_, err := exec.Execute(context.Background(), &domain.Statement{
		SQL: `SELECT "Artist"."ArtistId", "Artist"."Name" FROM "Artist"`,
	}, []domain.ColumnDescriptor{{Name: "ArtistId"}})
	assert.ErrorIs(t, err, domain.ErrBackendExecution)
}

func TestExecuteUnavailable(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		adapter, err := sqlite.NewSQLiteAdapter(database.Config{URL: "never-opened.db"})
		require.NoError(t, err)

		_, err = executor.NewQueryExecutor(adapter, nil).Execute(context.Background(),
			&domain.Statement{SQL: "SELECT 1"}, []domain.ColumnDescriptor{{Name: "1"}})

		var unavailable *domain.BackendUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, "connect", unavailable.Operation)
		assert.ErrorIs(t, err, database.ErrNotConnected)
	})

	t.Run("no adapter", func(t *testing.T) {
		_, err := executor.NewQueryExecutor(nil, nil).Execute(context.Background(),
			&domain.Statement{SQL: "SELECT 1"}, nil)
		assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	})

	t.Run("cancelled context", func(t *testing.T) {
		adapter := connect(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := executor.NewQueryExecutor(adapter, nil).Execute(ctx,
			&domain.Statement{SQL: `SELECT "Artist"."Name" FROM "Artist"`},
			[]domain.ColumnDescriptor{{Name: "Name"}})
		assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
		assert.Zero(t, adapter.Stats().InUse)
	})
}
