package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, session models.Session) error {
	predicateJSON, err := json.Marshal(session.Predicate)
	if err != nil {
		return fmt.Errorf("marshal predicate: %w", err)
	}
	query := `
		INSERT INTO verification_sessions (
			request_id, provider_id, provider_name, provider_type,
			predicate, predicate_human_readable, code_payload, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(session.RequestID),
		session.ProviderID.String(),
		session.ProviderName,
		session.ProviderType,
		predicateJSON,
		session.PredicateHumanReadable,
		session.CodePayload,
		session.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("save verification session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Session, error) {
	query := `
		SELECT request_id, provider_id, provider_name, provider_type,
			predicate, predicate_human_readable, code_payload, created_at
		FROM verification_sessions
		WHERE request_id = $1
	`
	var (
		rawID         uuid.UUID
		providerID    string
		predicateJSON []byte
		session       models.Session
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)).Scan(
		&rawID,
		&providerID,
		&session.ProviderName,
		&session.ProviderType,
		&predicateJSON,
		&session.PredicateHumanReadable,
		&session.CodePayload,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find verification session: %w", err)
	}

	var p predicate.Predicate
	if err := json.Unmarshal(predicateJSON, &p); err != nil {
		return nil, fmt.Errorf("unmarshal predicate: %w", err)
	}
	session.RequestID = id.RequestID(rawID)
	session.ProviderID = id.ProviderID(providerID)
	session.Predicate = p
	return &session, nil
}

func (s *PostgresStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM verification_sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old verification sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
