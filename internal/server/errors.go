package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/rowx/internal/errs"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an error kind to the HTTP status returned to clients.
func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindInvalidInput, errs.ErrKindQueryFailed:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindConflict:
		return http.StatusConflict
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err through the backend and writes the JSON error
// body. Server-side failures are logged; client errors are not.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	classified := s.db.Classify(err)
	kind := errs.KindOf(classified)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"kind":       kind.String(),
			"status":     status,
		})
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}
