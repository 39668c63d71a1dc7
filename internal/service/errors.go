package service

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	// ErrConflict is returned when deciding a request that is no longer
	// pending.
	ErrConflict = errors.New("conflict")
	// ErrGrantIncomplete means the request was approved but the grant write
	// failed. RepairGrants fixes it later.
	ErrGrantIncomplete = errors.New("request approved but grant was not recorded")
)
