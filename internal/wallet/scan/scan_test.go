package scan

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mediguard/internal/codescheme"
	"mediguard/internal/wallet/prove"
	"mediguard/internal/wallet/store"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/testutil"
)

func TestDispatch(t *testing.T) {
	rid := testutil.TestIDs.RequestID1
	offer, err := codescheme.EncodeCredentialOffer(testutil.NewCredential(1))
	require.NoError(t, err)

	t.Run("verify code", func(t *testing.T) {
		action := Dispatch(codescheme.EncodeVerify(rid))
		assert.Equal(t, NavigateToProofFlow{RequestID: rid}, action)
	})

	t.Run("credential offer", func(t *testing.T) {
		action, ok := Dispatch(offer).(OfferCredentialImport)
		require.True(t, ok)
		assert.Equal(t, "cred-1", action.Credential.ID)
		assert.Equal(t, "COVID-19", action.Credential.Attributes["vaccination_type"])
	})

	rejects := []struct {
		name string
		raw  string
		code dErrors.Code
	}{
		{"web url", "https://example.com/verify?req=" + rid.String(), dErrors.CodeWrongScheme},
		{"plain text", "hello", dErrors.CodeMalformedCode},
		{"empty", "", dErrors.CodeMalformedCode},
		{"unknown action", "mediguard://pay?amount=3", dErrors.CodeUnknownIntent},
		{"verify without request", "mediguard://verify", dErrors.CodeMissingField},
		{"credential without payload", "mediguard://credential", dErrors.CodeMissingField},
		{"credential missing sig", "mediguard://credential?payload=" + url.QueryEscape(`{"id":"x","type":"t","iss":"i"}`), dErrors.CodeMalformedPayload},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			reject, ok := Dispatch(tt.raw).(Reject)
			require.True(t, ok)
			assert.Equal(t, tt.code, reject.Code)
			assert.NotEmpty(t, reject.Reason)
		})
	}
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeProver struct {
	calls []id.RequestID
	err   error
}

func (p *fakeProver) Prove(_ context.Context, requestID id.RequestID) (*prove.Result, error) {
	p.calls = append(p.calls, requestID)
	if p.err != nil {
		return nil, p.err
	}
	return &prove.Result{Verified: true}, nil
}

type ScannerSuite struct {
	suite.Suite
	ctx         context.Context
	clock       *manualClock
	persistence *store.MemoryPersistence
	wallet      *store.Store
	prover      *fakeProver
	scanner     *Scanner
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerSuite))
}

func (s *ScannerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &manualClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s.persistence = store.NewMemoryPersistence()
	var err error
	s.wallet, err = store.Open(s.ctx, s.persistence)
	s.Require().NoError(err)
	s.prover = &fakeProver{}
	s.scanner = NewScanner(s.wallet, s.prover,
		WithClock(s.clock.now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ScannerSuite) TestRejectCoolsDownWithoutTouchingStorage() {
	out, err := s.scanner.HandleFrame(s.ctx, "https://example.com")
	s.Require().NoError(err)
	s.IsType(Reject{}, out.Action)
	s.Equal(StateCooling, s.scanner.State())
	s.Zero(s.persistence.Saves())

	out, err = s.scanner.HandleFrame(s.ctx, "https://example.com")
	s.Require().NoError(err)
	s.True(out.Ignored)

	s.clock.advance(DefaultCooldown)
	s.Equal(StateScanning, s.scanner.State())
}

func (s *ScannerSuite) TestTwoRapidScansOfTheSameOffer() {
	offer, err := codescheme.EncodeCredentialOffer(testutil.NewCredential(1))
	s.Require().NoError(err)

	first, err := s.scanner.HandleFrame(s.ctx, offer)
	s.Require().NoError(err)
	s.Require().NotNil(first.Import)
	s.True(first.Import.Added)

	// Still in view: swallowed by the cooldown.
	s.clock.advance(500 * time.Millisecond)
	held, err := s.scanner.HandleFrame(s.ctx, offer)
	s.Require().NoError(err)
	s.True(held.Ignored)

	// Scanned again after the cooldown: idempotent import.
	s.clock.advance(DefaultCooldown)
	second, err := s.scanner.HandleFrame(s.ctx, offer)
	s.Require().NoError(err)
	s.Require().NotNil(second.Import)
	s.False(second.Import.Added)

	s.Len(s.wallet.List(s.ctx), 1)
}

func (s *ScannerSuite) TestVerifyCodeRunsProofFlow() {
	rid := testutil.TestIDs.RequestID2
	out, err := s.scanner.HandleFrame(s.ctx, codescheme.EncodeVerify(rid))
	s.Require().NoError(err)
	s.Require().NotNil(out.Proof)
	s.True(out.Proof.Verified)
	s.Equal([]id.RequestID{rid}, s.prover.calls)
}

func (s *ScannerSuite) TestFollowUpFailuresAreNonFatal() {
	s.prover.err = dErrors.New(dErrors.CodeBackendUnavailable, "backend unreachable")
	out, err := s.scanner.HandleFrame(s.ctx, codescheme.EncodeVerify(testutil.TestIDs.RequestID1))
	s.Require().NoError(err)
	s.True(dErrors.HasCode(out.Err, dErrors.CodeBackendUnavailable))

	s.clock.advance(DefaultCooldown)
	s.Equal(StateScanning, s.scanner.State())
}

func (s *ScannerSuite) TestStopAndResume() {
	s.scanner.Stop()
	s.Equal(StateStopped, s.scanner.State())
	_, err := s.scanner.HandleFrame(s.ctx, "anything")
	s.ErrorIs(err, ErrStopped)

	s.scanner.Resume()
	s.Equal(StateScanning, s.scanner.State())
}
