package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MyTurnyet/switch-this-sub002/internal/layout"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps a service error to its HTTP status and client message.
// Persistence failures never leak their cause.
func statusFor(err error) (int, string) {
	var (
		verr *switchlist.ValidationError
		nerr *switchlist.NotFoundError
		xerr *switchlist.ExecutionError
		perr *switchlist.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.As(err, &nerr):
		return http.StatusNotFound, nerr.Error()
	case errors.As(err, &xerr):
		return http.StatusConflict, xerr.Err.Error()
	case layout.IsPlacementError(err), errors.Is(err, store.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.As(err, &perr):
		return http.StatusInternalServerError, "Internal server error"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, msg)
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
