package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"roombook/internal/booking"
	"roombook/internal/model"
	"roombook/internal/plone"
	"roombook/internal/slots"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps controller and client errors onto a status code.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), plone.UserMessage(err))
}

func statusFor(err error) int {
	var apiErr *plone.APIError
	switch {
	case errors.Is(err, booking.ErrNoRoomSelected):
		return http.StatusConflict
	case errors.Is(err, booking.ErrUnknownRoom):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidCell),
		errors.Is(err, model.ErrInvalidInterval),
		errors.Is(err, slots.ErrSlotUnavailable),
		errors.Is(err, slots.ErrOffGrid),
		errors.Is(err, slots.ErrOutsideWindow),
		errors.Is(err, slots.ErrTooLong),
		errors.Is(err, slots.ErrInPast):
		return http.StatusUnprocessableEntity
	case errors.Is(err, plone.ErrPermission):
		return http.StatusForbidden
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}
