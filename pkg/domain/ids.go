// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "mediguard/pkg/domain-errors"
)

// UUID-backed identifiers assigned by the backend.
type (
	RequestID      uuid.UUID
	VerificationID uuid.UUID
)

// Slug identifiers chosen by operators (e.g. "apollo-pharmacy", "demo_issuer").
type (
	ProviderID string
	IssuerID   string
)

// maxSlugLength bounds operator-chosen identifiers so they stay safe in URLs and logs.
const maxSlugLength = 64

var validSlug = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// NewRequestID returns a fresh random request identifier. It is safe for
// concurrent callers; collision probability is that of UUIDv4.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// NewVerificationID returns a fresh random verification identifier.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, decoded codes, API inputs).

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseVerificationID(s string) (VerificationID, error) {
	id, err := parseUUID(s, "verification ID")
	return VerificationID(id), err
}

func ParseProviderID(s string) (ProviderID, error) {
	v, err := parseSlug(s, "provider ID")
	return ProviderID(v), err
}

func ParseIssuerID(s string) (IssuerID, error) {
	v, err := parseSlug(s, "issuer ID")
	return IssuerID(v), err
}

func (id RequestID) String() string      { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id ProviderID) String() string     { return string(id) }
func (id IssuerID) String() string       { return string(id) }

func (id RequestID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProviderID) IsNil() bool     { return id == "" }
func (id IssuerID) IsNil() bool       { return id == "" }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}

func parseSlug(s, label string) (string, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxSlugLength || !validSlug.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return s, nil
}
