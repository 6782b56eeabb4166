package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"clinic-booking-api/internal/model"
)

const maxBody = 1 << 20

const (
	msgBadBody          = "Invalid inputs passed, please check your data."
	msgMethodNotAllowed = "This method is not supported for this route."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(k model.Kind) int {
	switch k {
	case model.KindValidation, model.KindConflict:
		return http.StatusUnprocessableEntity
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"message": ...}. Anything that is not a
// *model.Error becomes a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var e *model.Error
	if !errors.As(err, &e) {
		e = model.Internal("An unknown error occurred!")
	}
	writeJSON(w, statusFor(e.Kind), map[string]string{"message": e.Message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return model.Validation(msgBadBody)
	}
	return nil
}
