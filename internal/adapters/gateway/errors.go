package gateway

import (
	"errors"
	"net/http"

	"github.com/satishbabariya/querygate/internal/core/query/domain"
	"github.com/satishbabariya/querygate/internal/service"
)

type errorBody struct {
	Detail errorDetail `json:"detail" msgpack:"detail"`
}

type errorDetail struct {
	Type   string `json:"type" msgpack:"type"`
	Msg    string `json:"msg" msgpack:"msg"`
	Table  string `json:"table,omitempty" msgpack:"table,omitempty"`
	Column string `json:"column,omitempty" msgpack:"column,omitempty"`
}

// StatusFor maps an error to an HTTP status: request problems are 4xx,
// backend unavailability 503, anything else 500.
func StatusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, domain.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingTable),
		errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, domain.ErrDuplicateColumn),
		errors.Is(err, domain.ErrInvalidFilterValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBackendExecution):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(err error) errorDetail {
	d := errorDetail{Type: kindOf(err), Msg: err.Error()}

	var (
		unknownTable  *domain.UnknownTableError
		unknownColumn *domain.UnknownColumnError
		duplicate     *domain.DuplicateColumnError
		invalid       *domain.InvalidFilterValueError
	)
	switch {
	case errors.As(err, &unknownTable):
		d.Table = unknownTable.Table
	case errors.As(err, &unknownColumn):
		d.Table, d.Column = unknownColumn.Table, unknownColumn.Column
	case errors.As(err, &duplicate):
		d.Table, d.Column = duplicate.Table, duplicate.Column
	case errors.As(err, &invalid):
		d.Table, d.Column = invalid.Table, invalid.Column
	}

	if d.Type == "internal" {
		// Internal details stay in the log.
		d.Msg = http.StatusText(http.StatusInternalServerError)
	}
	return d
}

func kindOf(err error) string {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return "invalid_request"
	}
	return service.ErrorKind(err)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.respond(w, r, status, errorBody{Detail: detailFor(err)})
}
