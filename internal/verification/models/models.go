package models

import (
	"time"

	"mediguard/internal/predicate"
	id "mediguard/pkg/domain"
)

// Session is a single verification request. It is read-only once created.
type Session struct {
	RequestID              id.RequestID
	ProviderID             id.ProviderID
	ProviderName           string
	ProviderType           string
	Predicate              predicate.Predicate
	PredicateHumanReadable string
	CodePayload            string
	CreatedAt              time.Time
}

// AuditRecord is one completed proof-submission attempt. Records are
// append-only; RequestID is nil when the feed does not carry it.
type AuditRecord struct {
	VerificationID         id.VerificationID
	ProviderID             id.ProviderID
	RequestID              id.RequestID
	Verified               bool
	PredicateHumanReadable string
	Device                 string
	Timestamp              time.Time
}

// HasRequestID reports whether the record can be correlated exactly.
func (r AuditRecord) HasRequestID() bool {
	return !r.RequestID.IsNil()
}

// AuditPage is one page of the audit listing as read by a client. Skipped
// counts rows that could not be decoded and are missing from Records.
type AuditPage struct {
	Records []AuditRecord
	Skipped int
}

// Status is the server-side view of a session's outcome.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusFailed   Status = "FAILED"
)

// SessionStatus summarizes the audit records correlated to one session.
type SessionStatus struct {
	RequestID     id.RequestID
	Status        Status
	Attempts      int
	LastAttemptAt *time.Time
}

// CreateRequest is the service input for CreateRequest.
type CreateRequest struct {
	ProviderID   id.ProviderID
	ProviderName string
	ProviderType string
	Predicate    predicate.Predicate
}

// SubmitProofRequest carries an opaque proof for a session.
type SubmitProofRequest struct {
	RequestID          id.RequestID
	Proof              string
	RevealedAttributes map[string]string
	IssuerPublicKey    string
}

// SubmitProofResult is returned to the holder after a submission attempt.
type SubmitProofResult struct {
	VerificationID id.VerificationID
	Verified       bool
	Timestamp      time.Time
}

// ProofCheck is the input handed to the proof verification collaborator.
type ProofCheck struct {
	Session            Session
	Proof              string
	RevealedAttributes map[string]string
	IssuerPublicKey    string
}
