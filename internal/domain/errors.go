package domain

import "errors"

// Error kinds shared by every layer. Callers wrap them with context and the
// transport layer maps them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)
