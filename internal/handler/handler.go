package handler

import (
	"errors"
	"net/http"

	"github.com/cradoe/timint/internal/errHandler"
	"github.com/cradoe/timint/internal/lifecycle"
)

// handleLifecycleError maps the lifecycle sentinels onto HTTP responses.
// Anything unrecognized is a server error.
func handleLifecycleError(errH *errHandler.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		errH.NotFound(w, r)
	case errors.Is(err, lifecycle.ErrExpired):
		errH.Gone(w, r, "Verification link has expired")
	case errors.Is(err, lifecycle.ErrAlreadyUsed):
		errH.Conflict(w, r, "Verification link has already been used")
	case errors.Is(err, lifecycle.ErrInvalidState):
		errH.Conflict(w, r, "Action is not valid for the current verification status")
	case errors.Is(err, lifecycle.ErrInvalidAge):
		errH.FailedValidation(w, r, []string{"Founder must be between 13 and 17 years old"})
	default:
		errH.ServerError(w, r, err)
	}
}
