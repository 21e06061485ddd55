package store

import (
	"fmt"

	"mediguard/pkg/platform/sentinel"
)

// Error Contract:
// - FindByID and FindByPublicKey return ErrNotFound for unknown issuers
// - Save returns ErrConflict if the issuer ID or key is already registered
var (
	ErrNotFound = fmt.Errorf("issuer not found: %w", sentinel.ErrNotFound)
	ErrConflict = fmt.Errorf("issuer already exists: %w", sentinel.ErrConflict)
)
