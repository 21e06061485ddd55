package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"mediguard/internal/issuer/models"
	id "mediguard/pkg/domain"
)

// PostgresStore persists issuers in PostgreSQL. Private keys are never
// stored; they are re-derived from the master key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, issuer models.Issuer) error {
	query := `
		INSERT INTO issuers (issuer_id, name, public_key, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		issuer.ID.String(),
		issuer.Name,
		issuer.PublicKey,
		issuer.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("save issuer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	return s.findOne(ctx, `
		SELECT issuer_id, name, public_key, created_at
		FROM issuers
		WHERE issuer_id = $1
	`, issuerID.String())
}

func (s *PostgresStore) FindByPublicKey(ctx context.Context, publicKey string) (*models.Issuer, error) {
	return s.findOne(ctx, `
		SELECT issuer_id, name, public_key, created_at
		FROM issuers
		WHERE public_key = $1
	`, publicKey)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Issuer, error) {
	var (
		issuerID string
		issuer   models.Issuer
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&issuerID,
		&issuer.Name,
		&issuer.PublicKey,
		&issuer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find issuer: %w", err)
	}
	issuer.ID = id.IssuerID(issuerID)
	return &issuer, nil
}
