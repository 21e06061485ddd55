package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mediguard/internal/credential"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

// TestIDs provides fixed identifiers for deterministic test data.
var TestIDs = struct {
	RequestID1 id.RequestID
	RequestID2 id.RequestID
	Provider1  id.ProviderID
	Provider2  id.ProviderID
	Issuer1    id.IssuerID
}{
	RequestID1: id.RequestID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	RequestID2: id.RequestID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	Provider1:  "apollo-pharmacy",
	Provider2:  "city-clinic",
	Issuer1:    "demo_issuer",
}

// SessionBuilder provides a fluent interface for building verification sessions.
type SessionBuilder struct {
	session models.Session
}

// NewSessionBuilder creates a SessionBuilder for an age_18 request.
func NewSessionBuilder() *SessionBuilder {
	p := predicate.Predicate{Type: predicate.TypeComparison, Attribute: "age", Operator: predicate.OpGTE, Value: "18"}
	requestID := id.NewRequestID()
	return &SessionBuilder{
		session: models.Session{
			RequestID:              requestID,
			ProviderID:             TestIDs.Provider1,
			ProviderName:           "Apollo Pharmacy Andheri",
			ProviderType:           "pharmacy",
			Predicate:              p,
			PredicateHumanReadable: p.HumanReadable(),
			CodePayload:            "mediguard://verify?req=" + requestID.String(),
			CreatedAt:              time.Now(),
		},
	}
}

func (b *SessionBuilder) WithRequestID(requestID id.RequestID) *SessionBuilder {
	b.session.RequestID = requestID
	b.session.CodePayload = "mediguard://verify?req=" + requestID.String()
	return b
}

func (b *SessionBuilder) WithProvider(providerID id.ProviderID) *SessionBuilder {
	b.session.ProviderID = providerID
	return b
}

func (b *SessionBuilder) WithPredicate(p predicate.Predicate) *SessionBuilder {
	b.session.Predicate = p
	b.session.PredicateHumanReadable = p.HumanReadable()
	return b
}

func (b *SessionBuilder) CreatedAt(t time.Time) *SessionBuilder {
	b.session.CreatedAt = t
	return b
}

func (b *SessionBuilder) Build() models.Session {
	return b.session
}

// AuditRecordBuilder provides a fluent interface for building audit records.
type AuditRecordBuilder struct {
	record models.AuditRecord
}

// NewAuditRecordBuilder creates a verified record stamped now with no request ID.
func NewAuditRecordBuilder() *AuditRecordBuilder {
	return &AuditRecordBuilder{
		record: models.AuditRecord{
			VerificationID:         id.NewVerificationID(),
			ProviderID:             TestIDs.Provider1,
			Verified:               true,
			PredicateHumanReadable: "age >= 18",
			Timestamp:              time.Now(),
		},
	}
}

func (b *AuditRecordBuilder) ForRequest(requestID id.RequestID) *AuditRecordBuilder {
	b.record.RequestID = requestID
	return b
}

func (b *AuditRecordBuilder) WithProvider(providerID id.ProviderID) *AuditRecordBuilder {
	b.record.ProviderID = providerID
	return b
}

func (b *AuditRecordBuilder) Verified(verified bool) *AuditRecordBuilder {
	b.record.Verified = verified
	return b
}

func (b *AuditRecordBuilder) At(t time.Time) *AuditRecordBuilder {
	b.record.Timestamp = t
	return b
}

func (b *AuditRecordBuilder) Build() models.AuditRecord {
	return b.record
}

// NewCredential returns a well-formed credential with a numbered ID.
func NewCredential(n int) credential.Credential {
	return credential.Credential{
		ID:         fmt.Sprintf("cred-%d", n),
		Type:       "vaccination",
		Issuer:     string(TestIDs.Issuer1),
		Signature:  fmt.Sprintf("sig-%d", n),
		Attributes: map[string]string{"vaccination_type": "COVID-19", "age": "34"},
	}
}
