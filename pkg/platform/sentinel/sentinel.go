package sentinel

import "errors"

// Sentinel dependency errors. Stores and persistence backends return these
// (optionally wrapped) so services can translate them into domain errors exactly once.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrInvalidData = errors.New("invalid stored data")
	ErrUnavailable = errors.New("unavailable")
)
