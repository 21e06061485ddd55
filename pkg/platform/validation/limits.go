package validation

import (
	"fmt"

	dErrors "mediguard/pkg/domain-errors"
)

// Map element count limits
const (
	// MaxAttributes is the maximum number of attributes on an issued credential
	// or a revealed attribute set.
	MaxAttributes = 32
)

// String element length limits
const (
	MaxAttributeKeyLength   = 64
	MaxAttributeValueLength = 256
	MaxProviderNameLength   = 200

	// MaxProofLength bounds the opaque proof blob (a compact JWS today).
	MaxProofLength = 8 * 1024
)

// CheckMapCount validates that a map does not exceed the maximum count.
func CheckMapCount[V any](fieldName string, m map[string]V, max int) error {
	if len(m) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckAttributes applies the count and per-entry length limits to an
// attribute map.
func CheckAttributes(fieldName string, attrs map[string]string) error {
	if err := CheckMapCount(fieldName, attrs, MaxAttributes); err != nil {
		return err
	}
	for k, v := range attrs {
		if k == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s contains an empty key", fieldName))
		}
		if len(k) > MaxAttributeKeyLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s key exceeds max length of %d", fieldName, MaxAttributeKeyLength))
		}
		if len(v) > MaxAttributeValueLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s.%s exceeds max length of %d", fieldName, k, MaxAttributeValueLength))
		}
	}
	return nil
}
