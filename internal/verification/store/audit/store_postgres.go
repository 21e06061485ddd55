package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

// PostgresStore persists the audit trail in PostgreSQL. The seq column is a
// bigserial used to break timestamp ties in append order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record models.AuditRecord) error {
	var requestID *uuid.UUID
	if record.HasRequestID() {
		rid := uuid.UUID(record.RequestID)
		requestID = &rid
	}
	query := `
		INSERT INTO verification_audit (
			verification_id, provider_id, request_id, verified,
			predicate_human_readable, device, verified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.VerificationID),
		record.ProviderID.String(),
		requestID,
		record.Verified,
		record.PredicateHumanReadable,
		record.Device,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByProvider(ctx context.Context, providerID id.ProviderID, limit int) ([]models.AuditRecord, error) {
	query := `
		SELECT verification_id, provider_id, request_id, verified,
			predicate_human_readable, device, verified_at
		FROM verification_audit
		WHERE provider_id = $1
		ORDER BY verified_at DESC, seq DESC
		LIMIT $2
	`
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.QueryContext(ctx, query, providerID.String(), limitArg)
	if err != nil {
		return nil, fmt.Errorf("list audit by provider: %w", err)
	}
	return scanRecords(rows)
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]models.AuditRecord, error) {
	query := `
		SELECT verification_id, provider_id, request_id, verified,
			predicate_human_readable, device, verified_at
		FROM verification_audit
		WHERE request_id = $1
		ORDER BY verified_at DESC, seq DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("list audit by request: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]models.AuditRecord, error) {
	defer rows.Close()

	records := make([]models.AuditRecord, 0)
	for rows.Next() {
		var (
			verificationID uuid.UUID
			providerID     string
			requestID      uuid.NullUUID
			record         models.AuditRecord
		)
		if err := rows.Scan(
			&verificationID,
			&providerID,
			&requestID,
			&record.Verified,
			&record.PredicateHumanReadable,
			&record.Device,
			&record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.VerificationID = id.VerificationID(verificationID)
		record.ProviderID = id.ProviderID(providerID)
		if requestID.Valid {
			record.RequestID = id.RequestID(requestID.UUID)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
