package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/platform/sentinel"
)

func TestRunConcurrentClassifies(t *testing.T) {
	result := RunConcurrent(40, func(idx int) error {
		switch idx % 4 {
		case 0:
			return nil
		case 1:
			return fmt.Errorf("save: %w", sentinel.ErrConflict)
		case 2:
			return dErrors.New(dErrors.CodeNotFound, "request not found")
		default:
			return errors.New("boom")
		}
	})

	assert.Equal(t, int32(10), result.Successes)
	assert.Equal(t, int32(10), result.Conflicts)
	assert.Equal(t, int32(10), result.NotFounds)
	assert.Equal(t, int32(10), result.Errors)
	assert.Equal(t, int32(40), result.Total())
}
