package gateway_test

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/satishbabariya/querygate/internal/adapters/gateway"
	"github.com/satishbabariya/querygate/internal/adapters/telemetry"
	"github.com/satishbabariya/querygate/internal/config"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
	"github.com/satishbabariya/querygate/internal/core/query/cache"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/testutil"
	"github.com/satishbabariya/querygate/internal/utils/container"
)

func newGateway(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	c, err := container.NewContainer(&config.Config{
		Database:  config.DatabaseConfig{Provider: "sqlite", URL: testutil.NewChinookDB(t), ReadOnly: true},
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 8000, MaxBodyBytes: 1 << 20},
		Query:     config.QueryConfig{PlanCacheSize: 16},
		Telemetry: config.TelemetryConfig{Type: "memory"},
	})
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { c.Close(ctx) })

	srv := gateway.NewServer(c.QueryService(), c.DatabaseAdapter(), gateway.Config{MaxBodyBytes: 256}, nil)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Detail struct {
		Type   string `json:"type"`
		Msg    string `json:"msg"`
		Table  string `json:"table"`
		Column string `json:"column"`
	} `json:"detail"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRoot(t *testing.T) {
	h := newGateway(t)

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Message string            `json:"message"`
		APIs    map[string]string `json:"apis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
	assert.Contains(t, body.APIs, "POST /query/")
	assert.Contains(t, body.APIs, "GET /tables/info/{table}")
}

func TestHealthcheck(t *testing.T) {
	h := newGateway(t)

	rec := do(t, h, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListTables(t *testing.T) {
	h := newGateway(t)
	want, err := json.Marshal(map[string][]string{"table_names": testutil.ChinookTables})
	require.NoError(t, err)

	for _, path := range []string{"/tables", "/tables/", "/tables/all"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, string(want), rec.Body.String())
		})
	}

	rec := do(t, h, http.MethodGet, "/tables/foo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "unsupported_command", body.Detail.Type)
	assert.Equal(t, "Unsupported command received: foo", body.Detail.Msg)
}

func TestTableInfo(t *testing.T) {
	h := newGateway(t)

	rec := do(t, h, http.MethodGet, "/tables/info/Album", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"Album":{"AlbumId":"INTEGER","Title":"NVARCHAR(160)","ArtistId":"INTEGER"}}`,
		strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, http.MethodGet, "/tables/info/Nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "unknown_table", body.Detail.Type)
	assert.Equal(t, "Nope", body.Detail.Table)

	rec = do(t, h, http.MethodGet, "/tables/info/sqlite_sequence", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuery(t *testing.T) {
	h := newGateway(t)

	rec := do(t, h, http.MethodPost, "/query/",
		`{"table": "Album", "fields": ["AlbumId", "Title"], "filters": {"ArtistId": 1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Query  string          `json:"query"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t,
		"SELECT \"Album\".\"AlbumId\", \"Album\".\"Title\" \nFROM \"Album\" \nWHERE \"Album\".\"ArtistId\" = :ArtistId_1",
		body.Query)
	assert.Equal(t,
		`[{"AlbumId":1,"Title":"For Those About To Rock We Salute You"},{"AlbumId":4,"Title":"Let There Be Rock"}]`,
		string(body.Result))

	rec = do(t, h, http.MethodPost, "/query", `{"table": "Artist", "filters": {"Name": "Nobody"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "[]", string(body.Result))
}

func TestQueryErrors(t *testing.T) {
	h := newGateway(t)

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"unknown table", `{"table": "Nope"}`, http.StatusNotFound, "unknown_table"},
		{"missing table", `{"fields": ["Title"]}`, http.StatusUnprocessableEntity, "missing_table"},
		{"unknown field", `{"table": "Album", "fields": ["Nope"]}`, http.StatusUnprocessableEntity, "unknown_column"},
		{"unknown filter", `{"table": "Album", "filters": {"Nope": 1}}`, http.StatusUnprocessableEntity, "unknown_column"},
		{"duplicate field", `{"table": "Album", "fields": ["Title", "Title"]}`, http.StatusUnprocessableEntity, "duplicate_column"},
		{"nested filter value", `{"table": "Album", "filters": {"ArtistId": {"$gt": 1}}}`, http.StatusUnprocessableEntity, "invalid_filter_value"},
		{"empty body", ``, http.StatusBadRequest, "invalid_request"},
		{"bad json", `{"table": `, http.StatusBadRequest, "invalid_request"},
		{"trailing data", `{"table": "Album"} {}`, http.StatusBadRequest, "invalid_request"},
		{"unknown key", `{"table": "Album", "limit": 1}`, http.StatusBadRequest, "invalid_request"},
		{"wrong type", `{"table": 1}`, http.StatusUnprocessableEntity, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/query/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, decodeError(t, rec).Detail.Type)
		})
	}
}

func TestQueryBodyLimits(t *testing.T) {
	h := newGateway(t)

	big := fmt.Sprintf(`{"table": "Album", "filters": {"Title": %q}}`, strings.Repeat("x", 512))
	rec := do(t, h, http.MethodPost, "/query/", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/query/", strings.NewReader(`table=Album`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestMethodAndPathMisses(t *testing.T) {
	h := newGateway(t)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/query/", "").Code)
	rec := do(t, h, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Detail.Type)
}

func TestMsgpackResponses(t *testing.T) {
	h := newGateway(t)

	req := httptest.NewRequest(http.MethodPost, "/query/",
		strings.NewReader(`{"table": "Artist", "fields": ["Name"], "filters": {"ArtistId": 3}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/msgpack")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var body struct {
		Query  string           `msgpack:"query"`
		Result []map[string]any `msgpack:"result"`
	}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Query, `"Artist"."Name"`)
	require.Len(t, body.Result, 1)
	assert.Equal(t, "Aerosmith", body.Result[0]["Name"])
}

func TestStats(t *testing.T) {
	h := newGateway(t)

	do(t, h, http.MethodPost, "/query/", `{"table": "Album", "filters": {"ArtistId": 1}}`)
	do(t, h, http.MethodPost, "/query/", `{"table": "Album", "filters": {"ArtistId": 2}}`)
	do(t, h, http.MethodPost, "/query/", `{"table": "Nope"}`)

	rec := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Telemetry telemetry.Snapshot `json:"telemetry"`
		Pool      pool.PoolStats     `json:"pool"`
		PlanCache cache.Stats        `json:"plan_cache"`
		CatalogAt time.Time          `json:"catalog_built_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.CatalogAt.IsZero())
	assert.WithinDuration(t, time.Now(), body.CatalogAt, time.Minute)
	assert.Equal(t, int64(2), body.Telemetry.Queries["Album"]["success"])
	assert.Equal(t, int64(1), body.Telemetry.Errors["unknown_table"])
	assert.Equal(t, int64(1), body.PlanCache.Hits)
	assert.Positive(t, body.Pool.MaxOpenConnections)
}

// stubService serves canned answers for middleware tests.
type stubService struct {
	tables   []string
	panics   bool
	queryErr error
}

func (s *stubService) ListTables(ctx context.Context) ([]string, error) {
	if s.panics {
		panic("catalog corrupted")
	}
	return s.tables, nil
}

func (s *stubService) TableInfo(ctx context.Context, table string) (*domain.TableInfo, error) {
	return nil, errors.New("connection pool exhausted at 0x1234")
}

func (s *stubService) RunQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return nil, &domain.BackendUnavailableError{Operation: "connect", Cause: errors.New("dial tcp: refused")}
}

func (s *stubService) Telemetry() telemetry.Telemetry { return telemetry.NewNoopTelemetry() }

func (s *stubService) PlanCacheStats() cache.Stats { return cache.Stats{} }

func (s *stubService) CatalogBuiltAt() time.Time { return time.Time{} }

type stubBackend struct{ err error }

func (b stubBackend) Ping(ctx context.Context) error { return b.err }
func (b stubBackend) Stats() pool.PoolStats          { return pool.PoolStats{} }

func TestPanicRecovery(t *testing.T) {
	h := gateway.NewServer(&stubService{panics: true}, stubBackend{}, gateway.Config{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/tables/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "internal", body.Detail.Type)
	assert.NotContains(t, body.Detail.Msg, "catalog corrupted")
}

func TestInternalErrorsAreMasked(t *testing.T) {
	h := gateway.NewServer(&stubService{}, stubBackend{}, gateway.Config{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/tables/info/Album", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeError(t, rec).Detail.Msg)

	rec = do(t, h, http.MethodPost, "/query/", `{"table": "Album"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "backend_unavailable", decodeError(t, rec).Detail.Type)
}

func TestHealthcheckUnavailable(t *testing.T) {
	h := gateway.NewServer(&stubService{}, stubBackend{err: errors.New("database is locked")}, gateway.Config{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestBackendExecutionIsBadRequest(t *testing.T) {
	svc := &stubService{queryErr: &domain.BackendExecutionError{
		Query: `SELECT "Album"."Title" FROM "Album"`,
		Cause: errors.New("no such column: Title"),
	}}
	h := gateway.NewServer(svc, stubBackend{}, gateway.Config{}, nil).Handler()

	rec := do(t, h, http.MethodPost, "/query/", `{"table": "Album"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "backend_execution", body.Detail.Type)
	assert.Contains(t, body.Detail.Msg, "no such column: Title")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing table", &domain.MissingTableError{}, http.StatusUnprocessableEntity},
		{"unknown table", &domain.UnknownTableError{Table: "Nope"}, http.StatusNotFound},
		{"reserved table", &domain.UnknownTableError{Table: "sqlite_master", Reserved: true}, http.StatusNotFound},
		{"unknown column", &domain.UnknownColumnError{Table: "Album", Column: "Nope"}, http.StatusUnprocessableEntity},
		{"duplicate column", &domain.DuplicateColumnError{Table: "Album", Column: "Title"}, http.StatusUnprocessableEntity},
		{"invalid filter value", &domain.InvalidFilterValueError{Table: "Album", Column: "Title"}, http.StatusUnprocessableEntity},
		{"backend execution", &domain.BackendExecutionError{Cause: errors.New("syntax error")}, http.StatusBadRequest},
		{"backend unavailable", &domain.BackendUnavailableError{Operation: "connect", Cause: errors.New("refused")}, http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("run: %w", &domain.BackendExecutionError{Cause: errors.New("x")}), http.StatusBadRequest},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gateway.StatusFor(tt.err))
		})
	}
}

func TestGzip(t *testing.T) {
	tables := make([]string, 500)
	for i := range tables {
		tables[i] = fmt.Sprintf("table_%03d", i)
	}
	h := gateway.NewServer(&stubService{tables: tables}, stubBackend{}, gateway.Config{}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/tables/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	var body struct {
		TableNames []string `json:"table_names"`
	}
	require.NoError(t, json.NewDecoder(zr).Decode(&body))
	assert.Equal(t, tables, body.TableNames)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := gateway.NewServer(&stubService{tables: []string{"Album"}}, stubBackend{},
		gateway.Config{ShutdownTimeout: time.Second}, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/tables/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestMarkdown(t *testing.T) {
	md := gateway.Markdown()
	for _, route := range gateway.Routes {
		assert.Contains(t, md, route.Method+" "+route.Path)
	}
}
