package lifecycle

import "errors"

// Sentinel errors returned by lifecycle operations. Handlers map these onto
// HTTP statuses; anything else is a dependency failure and surfaces as a
// generic server error.
var (
	ErrNotFound     = errors.New("record not found")
	ErrExpired      = errors.New("verification link has expired")
	ErrAlreadyUsed  = errors.New("verification link already used")
	ErrInvalidState = errors.New("operation not valid for the current status")
	ErrInvalidAge   = errors.New("applicant age must be between 13 and 17")
)
