package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/satishbabariya/querygate/internal/adapters/telemetry"
	"github.com/satishbabariya/querygate/internal/core/database/pool"
	"github.com/satishbabariya/querygate/internal/core/query/cache"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthcheck", s.handleHealth)
	mux.HandleFunc("GET /tables", s.handleListTables)
	mux.HandleFunc("GET /tables/{$}", s.handleListTables)
	mux.HandleFunc("GET /tables/{command}", s.handleTablesCommand)
	mux.HandleFunc("GET /tables/info/{table}", s.handleTableInfo)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /query/{$}", s.handleQuery)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("/", s.handleNotFound)

	return compress(s.logRequests(s.recoverPanics(mux)))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	apis := make(map[string]string, len(Routes))
	for _, route := range Routes {
		apis[route.Method+" "+route.Path] = route.Summary
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"message": "Welcome to the querygate database gateway",
		"apis":    apis,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.respond(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type tablesResponse struct {
	TableNames []string `json:"table_names" msgpack:"table_names"`
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.svc.ListTables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, tablesResponse{TableNames: tables})
}

// handleTablesCommand keeps the /tables/all form working.
func (s *Server) handleTablesCommand(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")
	if command != "all" {
		s.respond(w, r, http.StatusBadRequest, errorBody{Detail: errorDetail{
			Type: "unsupported_command",
			Msg:  fmt.Sprintf("Unsupported command received: %s", command),
		}})
		return
	}
	s.handleListTables(w, r)
}

func (s *Server) handleTableInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.TableInfo(r.Context(), r.PathValue("table"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, info)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeQuery(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.svc.RunQuery(r.Context(), *req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, result)
}

type statsResponse struct {
	Telemetry telemetry.Snapshot `json:"telemetry" msgpack:"telemetry"`
	Pool      pool.PoolStats     `json:"pool" msgpack:"pool"`
	PlanCache cache.Stats        `json:"plan_cache" msgpack:"plan_cache"`
	CatalogAt time.Time          `json:"catalog_built_at" msgpack:"catalog_built_at"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, statsResponse{
		Telemetry: s.svc.Telemetry().Snapshot(),
		Pool:      s.backend.Stats(),
		PlanCache: s.svc.PlanCacheStats(),
		CatalogAt: s.svc.CatalogBuiltAt(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusNotFound, errorBody{Detail: errorDetail{Type: "not_found", Msg: "Not Found"}})
}

// requestError is a malformed request body.
type requestError struct {
	status int
	msg    string
	cause  error
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.cause }

// decodeQuery reads a QueryRequest. Numbers are kept as json.Number so
// integer and float filter values stay distinct.
func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*domain.QueryRequest, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return nil, &requestError{status: http.StatusUnsupportedMediaType, msg: "request body must be application/json"}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var req domain.QueryRequest
	if err := dec.Decode(&req); err != nil {
		var (
			tooLarge *http.MaxBytesError
			typeErr  *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &tooLarge):
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large", cause: err}
		case errors.As(err, &typeErr):
			return nil, &requestError{
				status: http.StatusUnprocessableEntity,
				msg:    fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type),
				cause:  err,
			}
		case errors.Is(err, io.EOF):
			return nil, &requestError{status: http.StatusBadRequest, msg: "request body is empty", cause: err}
		default:
			return nil, &requestError{status: http.StatusBadRequest, msg: "invalid JSON body: " + err.Error(), cause: err}
		}
	}
	if dec.More() {
		return nil, &requestError{status: http.StatusBadRequest, msg: "request body must hold a single JSON object"}
	}
	return &req, nil
}
