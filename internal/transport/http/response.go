package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-score-service/internal/domain"
)

type jsonResponse struct {
	Error   bool   `json:"error"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonResponse{Data: data, Message: msg})
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonResponse{Error: true, Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrEmptySelection):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrSessionBusy),
		errors.Is(err, domain.ErrNotInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrEmptyResult):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.ValidationError{Field: "body", Msg: err.Error()}
	}
	return nil
}
