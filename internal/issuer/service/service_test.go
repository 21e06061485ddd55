package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mediguard/internal/codescheme"
	"mediguard/internal/issuer/models"
	"mediguard/internal/issuer/signing"
	"mediguard/internal/issuer/store"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/requestcontext"
)

type failingStore struct{ *store.InMemoryStore }

func (failingStore) FindByID(context.Context, id.IssuerID) (*models.Issuer, error) {
	return nil, errors.New("connection reset")
}

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
	master  []byte
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.master = bytes.Repeat([]byte("k"), 32)
	s.store = store.NewInMemory()
	svc, err := New(s.store, s.master)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TestNewRejectsShortMasterKey() {
	_, err := New(s.store, []byte("short"))
	s.Error(err)
}

func (s *ServiceSuite) TestInitIsIdempotentAndStable() {
	ctx := context.Background()
	first, err := s.service.Init(ctx, "city_hospital", "City Hospital")
	s.Require().NoError(err)
	second, err := s.service.Init(ctx, "city_hospital", "Renamed")
	s.Require().NoError(err)
	s.Equal(first.PublicKey, second.PublicKey)
	s.Equal("City Hospital", second.Name)

	// A fresh process with the same master key derives the same key.
	restarted, err := New(store.NewInMemory(), s.master)
	s.Require().NoError(err)
	again, err := restarted.Init(ctx, "city_hospital", "City Hospital")
	s.Require().NoError(err)
	s.Equal(first.PublicKey, again.PublicKey)
}

func (s *ServiceSuite) TestInitRequiresName() {
	_, err := s.service.Init(context.Background(), "city_hospital", "  ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestPublicKey() {
	ctx := context.Background()
	issuer, err := s.service.Init(ctx, "city_hospital", "City Hospital")
	s.Require().NoError(err)

	key, err := s.service.PublicKey(ctx, "city_hospital")
	s.Require().NoError(err)
	s.Equal(issuer.PublicKey, key)

	_, err = s.service.PublicKey(ctx, "unknown")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestIssueProducesVerifiableOffer() {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	_, err := s.service.Init(ctx, "city_hospital", "City Hospital")
	s.Require().NoError(err)

	issued, err := s.service.Issue(ctx, models.IssueRequest{
		IssuerID:       "city_hospital",
		CredentialType: "vaccination",
		Attributes:     map[string]string{"vaccination_type": "COVID-19", "age": "34"},
	})
	s.Require().NoError(err)
	s.True(issued.IssuedAt.Equal(now))

	pub, err := signing.DecodePublicKey(issued.IssuerPublicKey)
	s.Require().NoError(err)
	claims, err := signing.Verify(issued.Signature, pub)
	s.Require().NoError(err)
	s.Equal(issued.CredentialID, claims.ID)
	s.Equal("city_hospital", claims.Issuer)
	s.Equal(issued.Attributes, claims.Attributes)

	intent, err := codescheme.Decode(issued.CredentialOffer)
	s.Require().NoError(err)
	imp, ok := intent.(codescheme.ImportCredential)
	s.Require().True(ok)
	s.Equal(issued.CredentialID, imp.Credential.ID)
	s.Equal(issued.Signature, imp.Credential.Signature)
	s.Equal("34", imp.Credential.Attributes["age"])

	owner, err := s.service.IssuerForKey(ctx, issued.IssuerPublicKey)
	s.Require().NoError(err)
	s.Equal(id.IssuerID("city_hospital"), owner.ID)
}

func (s *ServiceSuite) TestIssueValidation() {
	ctx := context.Background()
	_, err := s.service.Init(ctx, "city_hospital", "City Hospital")
	s.Require().NoError(err)

	cases := []struct {
		name string
		req  models.IssueRequest
		code dErrors.Code
	}{
		{"missing type", models.IssueRequest{IssuerID: "city_hospital", Attributes: map[string]string{"age": "1"}}, dErrors.CodeValidation},
		{"no attributes", models.IssueRequest{IssuerID: "city_hospital", CredentialType: "age"}, dErrors.CodeValidation},
		{"reserved attribute", models.IssueRequest{IssuerID: "city_hospital", CredentialType: "age", Attributes: map[string]string{"sig": "x"}}, dErrors.CodeValidation},
		{"unknown issuer", models.IssueRequest{IssuerID: "nobody", CredentialType: "age", Attributes: map[string]string{"age": "1"}}, dErrors.CodeNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Issue(ctx, tc.req)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (s *ServiceSuite) TestIssuerForUnknownKey() {
	_, err := s.service.IssuerForKey(context.Background(), "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestStoreFailureIsInternal() {
	svc, err := New(failingStore{store.NewInMemory()}, s.master)
	s.Require().NoError(err)
	_, err = svc.PublicKey(context.Background(), "city_hospital")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
