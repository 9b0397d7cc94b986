package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querygate/internal/config"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/testutil"
	"github.com/satishbabariya/querygate/internal/ui"
)

// execute runs the CLI against the Chinook fixture and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	oldOut, oldErr := ui.Out, ui.Err
	ui.Out, ui.Err = &out, &errOut
	t.Cleanup(func() { ui.Out, ui.Err = oldOut, oldErr })

	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color", "--provider", "sqlite", "--database-url", testutil.NewChinookDB(t)}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTablesCommand(t *testing.T) {
	out, err := execute(t, "tables", "--json")
	require.NoError(t, err)

	var body struct {
		TableNames []string `json:"table_names"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, testutil.ChinookTables, body.TableNames)

	out, err = execute(t, "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "• Album")
	assert.NotContains(t, out, "sqlite_sequence")
}

func TestDescribeCommand(t *testing.T) {
	out, err := execute(t, "describe", "Album", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Album":{"AlbumId":"INTEGER","Title":"NVARCHAR(160)","ArtistId":"INTEGER"}}`, out)

	out, err = execute(t, "describe", "Track")
	require.NoError(t, err)
	assert.Contains(t, out, "Composer")
	assert.Contains(t, out, "NUMERIC(10,2)")

	_, err = execute(t, "describe", "Nope")
	assert.ErrorIs(t, err, domain.ErrUnknownTable)
}

func TestQueryCommand(t *testing.T) {
	out, err := execute(t, "query", "Album", "--fields", "AlbumId,Title", "--where", "ArtistId = 1", "--json")
	require.NoError(t, err)

	var body struct {
		Query  string           `json:"query"`
		Result []map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Contains(t, body.Query, `WHERE "Album"."ArtistId" = :ArtistId_1`)
	require.Len(t, body.Result, 2)
	assert.Equal(t, "Let There Be Rock", body.Result[1]["Title"])

	out, err = execute(t, "query", "Artist", "--where", `Name = "Accept"`)
	require.NoError(t, err)
	assert.Contains(t, out, "Accept")
	assert.Contains(t, out, "1 row")

	out, err = execute(t, "query", "Track", "--fields", "TrackId", "--where", "AlbumId = 99")
	require.NoError(t, err)
	assert.Contains(t, out, "0 rows")
}

func TestQueryCommandExplain(t *testing.T) {
	out, err := execute(t, "query", "Track", "--fields", "TrackId", "--where", `AlbumId = 2 AND Composer = null`, "--explain")
	require.NoError(t, err)
	assert.Contains(t, out, `"Track"."Composer" IS NULL`)
	assert.Contains(t, out, ":AlbumId_1 = 2")
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "querygate query Album", commandLine(domain.QueryRequest{Table: "Album"}))

	req := domain.QueryRequest{
		Table:  "Track",
		Fields: []string{"TrackId", "Name"},
		Filters: map[string]any{
			"Composer": "Steven Tyler's band",
			"AlbumId":  json.Number("2"),
		},
	}
	assert.Equal(t,
		`querygate query Track --fields TrackId,Name --where 'AlbumId = 2 AND Composer = "Steven Tyler'\''s band"'`,
		commandLine(req))
}

func TestQueryCommandErrors(t *testing.T) {
	_, err := execute(t, "query", "Album", "--where", "ArtistId = ")
	assert.Error(t, err)

	_, err = execute(t, "query", "Album", "--fields", "Nope")
	assert.ErrorIs(t, err, domain.ErrUnknownColumn)
}

func TestDocsCommand(t *testing.T) {
	out, err := execute(t, "docs", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "POST /query/")
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3"
	t.Cleanup(func() { Version = "dev" })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "querygate version 1.2.3")
}

func TestInitCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	old := config.AppFs
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = old })

	path := filepath.Join("conf", "querygate.yaml")
	out, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+path)

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = execute(t, "init", path)
	assert.Error(t, err)
}

func TestInvalidProvider(t *testing.T) {
	_, err := execute(t, "--provider", "oracle", "tables")
	assert.Error(t, err)
}

func TestVersionCommandBackend(t *testing.T) {
	out, err := execute(t, "version", "--backend")
	require.NoError(t, err)
	assert.Contains(t, out, "Database: sqlite 3.")
	assert.NotContains(t, out, "older than")
}
