package prove

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mediguard/internal/credential"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	"mediguard/internal/wallet/prove/mocks"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/testutil"
)

type staticWallet []credential.Credential

func (w staticWallet) List(context.Context) []credential.Credential { return w }

//go:generate mockgen -source=prove.go -destination=mocks/mocks.go -package=mocks Backend
type ProveSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	backend *mocks.MockBackend
	session models.Session
}

func TestProveSuite(t *testing.T) {
	suite.Run(t, new(ProveSuite))
}

func (s *ProveSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.backend = mocks.NewMockBackend(s.ctrl)
	s.session = testutil.NewSessionBuilder().WithRequestID(testutil.TestIDs.RequestID1).Build()
}

func (s *ProveSuite) TestSubmitsOnlyThePredicateAttribute() {
	cred := testutil.NewCredential(1)
	rid := s.session.RequestID
	vid := id.NewVerificationID()

	s.backend.EXPECT().GetRequest(gomock.Any(), rid).Return(&s.session, nil)
	s.backend.EXPECT().IssuerPublicKey(gomock.Any(), id.IssuerID("demo_issuer")).Return("pk", nil)
	s.backend.EXPECT().SubmitProof(gomock.Any(), models.SubmitProofRequest{
		RequestID:          rid,
		Proof:              cred.Signature,
		RevealedAttributes: map[string]string{"age": "34"},
		IssuerPublicKey:    "pk",
	}).Return(&models.SubmitProofResult{VerificationID: vid, Verified: true, Timestamp: time.Now()}, nil)

	res, err := New(s.backend, staticWallet{cred}).Prove(context.Background(), rid)
	s.Require().NoError(err)
	s.True(res.Verified)
	s.Equal(cred.ID, res.Credential.ID)
	s.Equal(vid, res.Submission.VerificationID)
}

func (s *ProveSuite) TestNoMatchingCredential() {
	cred := testutil.NewCredential(1)
	delete(cred.Attributes, "age")
	s.backend.EXPECT().GetRequest(gomock.Any(), s.session.RequestID).Return(&s.session, nil)

	_, err := New(s.backend, staticWallet{cred}).Prove(context.Background(), s.session.RequestID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProveSuite) TestBackendErrorsPropagate() {
	s.backend.EXPECT().GetRequest(gomock.Any(), s.session.RequestID).
		Return(nil, dErrors.New(dErrors.CodeBackendUnavailable, "backend unreachable"))

	_, err := New(s.backend, staticWallet{testutil.NewCredential(1)}).Prove(context.Background(), s.session.RequestID)
	s.True(dErrors.HasCode(err, dErrors.CodeBackendUnavailable))
}

func TestSelect(t *testing.T) {
	age18, err := predicate.FromCatalogKey("age_18")
	require.NoError(t, err)

	minor := testutil.NewCredential(1)
	minor.Attributes = map[string]string{"age": "16"}
	adult := testutil.NewCredential(2)
	adult.Attributes = map[string]string{"age": "40"}
	newerMinor := testutil.NewCredential(3)
	newerMinor.Attributes = map[string]string{"age": "15"}

	got, err := Select([]credential.Credential{minor, adult, newerMinor}, age18)
	require.NoError(t, err)
	assert.Equal(t, "cred-2", got.ID, "a satisfying credential beats a newer non-satisfying one")

	got, err = Select([]credential.Credential{minor, newerMinor}, age18)
	require.NoError(t, err)
	assert.Equal(t, "cred-3", got.ID, "falls back to the newest carrier")

	_, err = Select(nil, age18)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
