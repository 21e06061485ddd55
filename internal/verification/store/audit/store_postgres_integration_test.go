//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mediguard/internal/verification/store/audit"
	"mediguard/pkg/testutil"
	"mediguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) TestListNewestFirstWithTieBreak() {
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Microsecond)
	older := testutil.NewAuditRecordBuilder().At(ts.Add(-time.Second)).Build()
	tieFirst := testutil.NewAuditRecordBuilder().At(ts).Build()
	tieSecond := testutil.NewAuditRecordBuilder().At(ts).Verified(false).Build()
	s.Require().NoError(s.store.Append(ctx, older))
	s.Require().NoError(s.store.Append(ctx, tieFirst))
	s.Require().NoError(s.store.Append(ctx, tieSecond))

	got, err := s.store.ListByProvider(ctx, testutil.TestIDs.Provider1, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(tieSecond.VerificationID, got[0].VerificationID)
	s.Equal(tieFirst.VerificationID, got[1].VerificationID)
	s.Equal(older.VerificationID, got[2].VerificationID)
	s.False(got[0].HasRequestID())
}

func (s *PostgresStoreSuite) TestListByRequest() {
	ctx := context.Background()
	requestID := testutil.TestIDs.RequestID1
	failed := testutil.NewAuditRecordBuilder().ForRequest(requestID).Verified(false).At(time.Now().Add(-time.Second)).Build()
	passed := testutil.NewAuditRecordBuilder().ForRequest(requestID).Build()
	unrelated := testutil.NewAuditRecordBuilder().Build()
	s.Require().NoError(s.store.Append(ctx, failed))
	s.Require().NoError(s.store.Append(ctx, passed))
	s.Require().NoError(s.store.Append(ctx, unrelated))

	got, err := s.store.ListByRequest(ctx, requestID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(passed.VerificationID, got[0].VerificationID)
	s.Equal(requestID, got[0].RequestID)
}

func (s *PostgresStoreSuite) TestLimitZeroReturnsAll() {
	ctx := context.Background()
	for range 4 {
		s.Require().NoError(s.store.Append(ctx, testutil.NewAuditRecordBuilder().Build()))
	}
	got, err := s.store.ListByProvider(ctx, testutil.TestIDs.Provider1, 0)
	s.Require().NoError(err)
	s.Len(got, 4)
}
