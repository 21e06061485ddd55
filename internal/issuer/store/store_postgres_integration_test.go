//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mediguard/internal/issuer/models"
	"mediguard/internal/issuer/store"
	"mediguard/pkg/platform/sentinel"
	"mediguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) TestSaveAndLookup() {
	ctx := context.Background()
	issuer := models.Issuer{
		ID:        "demo_issuer",
		Name:      "Demo Issuer",
		PublicKey: "Yk3b8x7Gf0qk7rQJQ0b4xkqkqkqkqkqkqkqkqkqkqkq",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Save(ctx, issuer))

	byID, err := s.store.FindByID(ctx, issuer.ID)
	s.Require().NoError(err)
	s.Equal(issuer.Name, byID.Name)
	s.True(issuer.CreatedAt.Equal(byID.CreatedAt))

	byKey, err := s.store.FindByPublicKey(ctx, issuer.PublicKey)
	s.Require().NoError(err)
	s.Equal(issuer.ID, byKey.ID)
}

func (s *PostgresStoreSuite) TestDuplicateConflicts() {
	ctx := context.Background()
	issuer := models.Issuer{ID: "demo_issuer", Name: "Demo", PublicKey: "pk", CreatedAt: time.Now()}
	s.Require().NoError(s.store.Save(ctx, issuer))
	s.ErrorIs(s.store.Save(ctx, issuer), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUnknownIssuer() {
	_, err := s.store.FindByID(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
