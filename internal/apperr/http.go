package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPStatus maps err to the response status handlers use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotPermitted), errors.Is(err, ErrRecipientNotAcceptingConnections):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidUpgrade):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Body builds the envelope for err. Internal failures do not leak their text.
func Body(err error) ErrorBody {
	kind := Kind(err)
	if kind == "internal" {
		return ErrorBody{Error: kind}
	}
	return ErrorBody{Error: kind, Message: err.Error()}
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the envelope for err with its mapped status.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, HTTPStatus(err), Body(err))
}
