package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	codeBadRequest         = "bad_request"
	codeNotFound           = "not_found"
	codeForbidden          = "forbidden"
	codeInvalidState       = "invalid_state"
	codePreconditionFailed = "precondition_failed"
	codeModeMismatch       = "mode_mismatch"
	codeInternal           = "internal"
)

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Message: msg, Code: code})
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondError(w, http.StatusBadRequest, codeBadRequest, msg)
}

// decodeJSON reads the request body into dst and answers 400 on failure. An
// empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			respondBadRequest(w, "invalid JSON payload")
			return false
		}
		respondBadRequest(w, "bad request")
		return false
	}
	return true
}

// writeServiceError maps a service failure to its status by kind. Anything
// without a kind is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, codeForbidden
	case errors.Is(err, service.ErrInvalidState):
		status, code = http.StatusConflict, codeInvalidState
	case errors.Is(err, service.ErrPreconditionFailed):
		status, code = http.StatusPreconditionFailed, codePreconditionFailed
	case errors.Is(err, service.ErrModeMismatch):
		status, code = http.StatusUnprocessableEntity, codeModeMismatch
	default:
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	respondError(w, status, code, err.Error())
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
