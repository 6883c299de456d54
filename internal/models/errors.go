package models

import "errors"

var (
	ErrNotFound           = errors.New("job not found")
	ErrValidation         = errors.New("validation failed")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnknownPhase       = errors.New("unknown progress phase")
)
