package handlers

import (
	"errors"
	"net/http"

	"fleet-rollout-api/internal/firmware"
	"fleet-rollout-api/internal/rollout"
	"fleet-rollout-api/internal/util"
)

// writeServiceError maps domain sentinel errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, firmware.ErrNotFound), errors.Is(err, rollout.ErrNotFound):
		util.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rollout.ErrValidation), errors.Is(err, firmware.ErrChecksumMismatch):
		util.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, firmware.ErrInvalidStateTransition),
		errors.Is(err, rollout.ErrAlreadyRunning),
		errors.Is(err, rollout.ErrNotRunning):
		util.WriteError(w, http.StatusConflict, err.Error())
	default:
		util.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
