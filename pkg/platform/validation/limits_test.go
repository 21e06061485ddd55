package validation

import (
	"fmt"
	"strings"
	"testing"

	dErrors "mediguard/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
)

// LimitsSuite tests the validation helper functions.
//
// Justification: These are trust-boundary validators. The invariants
// "max+1 must fail" and "max must pass" are security-critical.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func attrs(n int) map[string]string {
	m := make(map[string]string, n)
	for i := range n {
		m[fmt.Sprintf("k%d", i)] = "v"
	}
	return m
}

func (s *LimitsSuite) TestCheckMapCount() {
	s.Run("passes when count equals max", func() {
		s.NoError(CheckMapCount("attributes", attrs(3), 3))
	})

	s.Run("passes for nil map", func() {
		s.NoError(CheckMapCount[string]("attributes", nil, 3))
	})

	s.Run("fails when count exceeds max", func() {
		err := CheckMapCount("attributes", attrs(4), 3)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "too many attributes")
		s.Contains(err.Error(), "max 3 allowed")
	})
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes when length equals max", func() {
		s.NoError(CheckStringLength("proof", strings.Repeat("a", 100), 100))
	})

	s.Run("passes for empty string", func() {
		s.NoError(CheckStringLength("proof", "", 100))
	})

	s.Run("fails when length exceeds max", func() {
		err := CheckStringLength("proof", strings.Repeat("a", 101), 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "proof exceeds max length of 100")
	})
}

func (s *LimitsSuite) TestCheckAttributes() {
	s.Run("passes at the limits", func() {
		m := attrs(MaxAttributes - 1)
		m[strings.Repeat("k", MaxAttributeKeyLength)] = strings.Repeat("v", MaxAttributeValueLength)
		s.NoError(CheckAttributes("attributes", m))
	})

	s.Run("fails on empty key", func() {
		err := CheckAttributes("attributes", map[string]string{"": "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("fails on oversized key", func() {
		err := CheckAttributes("attributes", map[string]string{strings.Repeat("k", MaxAttributeKeyLength+1): "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("fails on oversized value", func() {
		err := CheckAttributes("attributes", map[string]string{"age": strings.Repeat("9", MaxAttributeValueLength+1)})
		s.Require().Error(err)
		s.Contains(err.Error(), "attributes.age")
	})

	s.Run("fails on too many entries", func() {
		s.Error(CheckAttributes("revealed_attributes", attrs(MaxAttributes+1)))
	})
}
