// Package api holds the JSON response helpers shared by all HTTP handlers and
// the mapping from domain error kinds to HTTP status codes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/fundsentinel/internal/domain"
)

// UserIDHeader carries the caller identity set by the upstream auth gateway
const UserIDHeader = "X-User-ID"

// ErrorBody is the JSON envelope of every error response
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload describes a failure to the caller
type ErrorPayload struct {
	Detail  map[string]any `json:"detail,omitempty"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
}

// StatusFor maps a domain error kind to its HTTP status
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON encodes data with the given status
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError converts err to its status and envelope. Internal errors are
// logged and their message is not exposed.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	payload := ErrorPayload{Kind: string(kind), Message: "internal server error"}

	if de, ok := asDomainError(err); ok && kind != domain.KindInternal {
		payload.Message = de.Message
		payload.Detail = de.Detail
	}
	if kind == domain.KindInternal {
		log.Error().Err(err).Msg("Request failed")
	}

	WriteJSON(w, log, StatusFor(kind), ErrorBody{Error: payload})
}

// UserID returns the authenticated caller or an Unauthorized error
func UserID(r *http.Request) (string, error) {
	id := r.Header.Get(UserIDHeader)
	if id == "" {
		return "", domain.Unauthorized("missing authenticated user")
	}
	return id, nil
}

// DecodeJSON decodes the request body, rejecting unknown fields
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.BadRequest("invalid request body: %v", err)
	}
	return nil
}

func asDomainError(err error) (*domain.Error, bool) {
	var de *domain.Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
