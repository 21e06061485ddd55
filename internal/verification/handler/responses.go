package handler

import (
	"time"

	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
)

// SessionResponse is returned by create and lookup. qr_code_data carries the
// mediguard://verify code payload.
type SessionResponse struct {
	RequestID              string              `json:"request_id"`
	ProviderID             string              `json:"provider_id"`
	ProviderName           string              `json:"provider_name,omitempty"`
	ProviderType           string              `json:"provider_type,omitempty"`
	Predicate              predicate.Predicate `json:"predicate"`
	PredicateHumanReadable string              `json:"predicate_human_readable"`
	QRCodeData             string              `json:"qr_code_data"`
	CreatedAt              time.Time           `json:"created_at"`
}

type SubmitProofResponse struct {
	VerificationID string    `json:"verification_id"`
	Verified       bool      `json:"verified"`
	Timestamp      time.Time `json:"timestamp"`
}

// AuditRecordResponse omits request_id when the record carries none.
type AuditRecordResponse struct {
	VerificationID         string    `json:"verification_id"`
	ProviderID             string    `json:"provider_id"`
	RequestID              string    `json:"request_id,omitempty"`
	Verified               bool      `json:"verified"`
	PredicateHumanReadable string    `json:"predicate_human_readable"`
	Device                 string    `json:"device,omitempty"`
	Timestamp              time.Time `json:"timestamp"`
}

type AuditListResponse struct {
	Verifications []AuditRecordResponse `json:"verifications"`
}

type SessionStatusResponse struct {
	RequestID     string     `json:"request_id"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

func toSessionResponse(session *models.Session) SessionResponse {
	return SessionResponse{
		RequestID:              session.RequestID.String(),
		ProviderID:             session.ProviderID.String(),
		ProviderName:           session.ProviderName,
		ProviderType:           session.ProviderType,
		Predicate:              session.Predicate,
		PredicateHumanReadable: session.PredicateHumanReadable,
		QRCodeData:             session.CodePayload,
		CreatedAt:              session.CreatedAt,
	}
}

func toAuditListResponse(records []models.AuditRecord) AuditListResponse {
	out := make([]AuditRecordResponse, 0, len(records))
	for _, r := range records {
		item := AuditRecordResponse{
			VerificationID:         r.VerificationID.String(),
			ProviderID:             r.ProviderID.String(),
			Verified:               r.Verified,
			PredicateHumanReadable: r.PredicateHumanReadable,
			Device:                 r.Device,
			Timestamp:              r.Timestamp,
		}
		if r.HasRequestID() {
			item.RequestID = r.RequestID.String()
		}
		out = append(out, item)
	}
	return AuditListResponse{Verifications: out}
}
