package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mediguard/pkg/domain-errors"
)

// TestParseRequestID_Invariants validates the parsing invariant:
// "request IDs must be valid, non-empty, non-nil UUIDs"
func TestParseRequestID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRequestID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRequestID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRequestID(uuid.Nil.String())
		require.Error(t, err)
	})

	t.Run("round trips a generated ID", func(t *testing.T) {
		rid := NewRequestID()
		parsed, err := ParseRequestID(rid.String())
		require.NoError(t, err)
		assert.Equal(t, rid, parsed)
	})
}

func TestParseProviderID(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"apollo-pharmacy", true},
		{"demo_issuer", true},
		{"clinic.42", true},
		{"", false},
		{"-leading-dash", false},
		{"has space", false},
		{"slash/inside", false},
		{strings.Repeat("a", maxSlugLength+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseProviderID(tc.in)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, ProviderID(tc.in), got)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := make(map[RequestID]struct{}, 1000)
	for range 1000 {
		rid := NewRequestID()
		_, dup := seen[rid]
		require.False(t, dup)
		seen[rid] = struct{}{}
	}
}
