package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	"mediguard/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func record(provider id.ProviderID, ts time.Time, verified bool) models.AuditRecord {
	return models.AuditRecord{
		VerificationID:         id.NewVerificationID(),
		ProviderID:             provider,
		RequestID:              id.NewRequestID(),
		Verified:               verified,
		PredicateHumanReadable: "age >= 18",
		Timestamp:              ts,
	}
}

func (s *InMemoryStoreSuite) TestListNewestFirstAndScopedToProvider() {
	ctx := context.Background()
	base := time.Now()
	older := record("apollo", base.Add(-time.Minute), true)
	newer := record("apollo", base, false)
	other := record("city-clinic", base.Add(time.Minute), true)
	for _, r := range []models.AuditRecord{newer, other, older} {
		s.Require().NoError(s.store.Append(ctx, r))
	}

	got, err := s.store.ListByProvider(ctx, "apollo", 10)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.VerificationID, got[0].VerificationID)
	s.Equal(older.VerificationID, got[1].VerificationID)
}

func (s *InMemoryStoreSuite) TestEqualTimestampsListLaterAppendFirst() {
	ctx := context.Background()
	ts := time.Now()
	first := record("apollo", ts, true)
	second := record("apollo", ts, false)
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	got, err := s.store.ListByProvider(ctx, "apollo", 0)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(second.VerificationID, got[0].VerificationID)
}

func (s *InMemoryStoreSuite) TestLimit() {
	ctx := context.Background()
	base := time.Now()
	for i := range 5 {
		s.Require().NoError(s.store.Append(ctx, record("apollo", base.Add(time.Duration(i)*time.Second), true)))
	}

	got, err := s.store.ListByProvider(ctx, "apollo", 3)
	s.Require().NoError(err)
	s.Len(got, 3)
	s.True(got[0].Timestamp.Equal(base.Add(4 * time.Second)))
}

func (s *InMemoryStoreSuite) TestListByRequest() {
	ctx := context.Background()
	r := record("apollo", time.Now(), false)
	retry := r
	retry.VerificationID = id.NewVerificationID()
	retry.Verified = true
	retry.Timestamp = r.Timestamp.Add(time.Second)
	s.Require().NoError(s.store.Append(ctx, r))
	s.Require().NoError(s.store.Append(ctx, retry))
	s.Require().NoError(s.store.Append(ctx, record("apollo", time.Now(), true)))

	got, err := s.store.ListByRequest(ctx, r.RequestID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.True(got[0].Verified)
}

func (s *InMemoryStoreSuite) TestConcurrentAppendsAndReads() {
	ctx := context.Background()
	result := testutil.RunConcurrent(100, func(idx int) error {
		if idx%2 == 0 {
			_, err := s.store.ListByProvider(ctx, "apollo", 10)
			return err
		}
		return s.store.Append(ctx, record("apollo", time.Now(), true))
	})
	s.Equal(int32(100), result.Successes)

	got, err := s.store.ListByProvider(ctx, "apollo", 0)
	s.Require().NoError(err)
	s.Len(got, 50)
	for i := 1; i < len(got); i++ {
		s.False(got[i].Timestamp.After(got[i-1].Timestamp), "records must be newest first")
	}
}
