package session

import (
	"fmt"

	"mediguard/pkg/platform/sentinel"
)

// Error Contract:
// - FindByID returns ErrNotFound (wrapping sentinel.ErrNotFound) for unknown IDs
// - Save returns ErrConflict if the request ID is already taken
// - Infrastructure failures are wrapped with context
var (
	ErrNotFound = fmt.Errorf("verification session not found: %w", sentinel.ErrNotFound)
	ErrConflict = fmt.Errorf("verification session already exists: %w", sentinel.ErrConflict)
)
