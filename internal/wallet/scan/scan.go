// Package scan classifies scanned codes and runs the holder's scan loop.
//
// Dispatch is pure. Scanner wraps it in a {Scanning, Cooling, Stopped} state
// machine: after any decoded frame, rejected or not, further frames are
// ignored for the cooldown so a code still in view is not dispatched twice.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mediguard/internal/codescheme"
	"mediguard/internal/credential"
	"mediguard/internal/wallet/prove"
	"mediguard/internal/wallet/store"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
)

// DefaultCooldown keeps a still-visible code from re-triggering.
const DefaultCooldown = 1500 * time.Millisecond

// Action is the closed set of dispatch outcomes.
type Action interface {
	action()
}

// NavigateToProofFlow hands a request ID to the proof flow.
type NavigateToProofFlow struct {
	RequestID id.RequestID
}

// OfferCredentialImport offers a decoded credential to the store.
type OfferCredentialImport struct {
	Credential credential.Credential
}

// Reject carries a user-facing reason and the decode error code.
type Reject struct {
	Code   dErrors.Code
	Reason string
}

func (NavigateToProofFlow) action()   {}
func (OfferCredentialImport) action() {}
func (Reject) action()                {}

// Dispatch classifies a raw scan.
func Dispatch(raw string) Action {
	intent, err := codescheme.Decode(raw)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return Reject{Code: de.Code, Reason: de.Message}
		}
		return Reject{Code: dErrors.CodeMalformedCode, Reason: "not a MediGuard code"}
	}
	switch in := intent.(type) {
	case codescheme.SubmitProof:
		return NavigateToProofFlow{RequestID: in.RequestID}
	case codescheme.ImportCredential:
		return OfferCredentialImport{Credential: in.Credential}
	default:
		return Reject{Code: dErrors.CodeUnknownIntent, Reason: "unknown MediGuard action"}
	}
}

// State of the scan loop.
type State int

const (
	StateScanning State = iota
	StateCooling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCooling:
		return "cooling"
	case StateStopped:
		return "stopped"
	default:
		return "scanning"
	}
}

// Importer receives credential offers.
type Importer interface {
	Import(ctx context.Context, c credential.Credential) (store.ImportResult, error)
}

// ProofFlow receives verification intents.
type ProofFlow interface {
	Prove(ctx context.Context, requestID id.RequestID) (*prove.Result, error)
}

// Outcome reports what a frame led to. Err holds a non-fatal failure of the
// follow-up step (import or proof); the loop keeps running regardless.
type Outcome struct {
	Ignored bool
	Action  Action
	Import  *store.ImportResult
	Proof   *prove.Result
	Err     error
}

// ErrStopped is returned for frames handed to a stopped scanner.
var ErrStopped = errors.New("scanner stopped")

// Scanner owns the exclusive decode loop.
type Scanner struct {
	importer Importer
	prover   ProofFlow
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu          sync.Mutex
	stopped     bool
	busy        bool
	coolingTill time.Time
}

type Option func(*Scanner)

func WithCooldown(d time.Duration) Option {
	return func(s *Scanner) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewScanner(importer Importer, prover ProofFlow, opts ...Option) *Scanner {
	s := &Scanner{
		importer: importer,
		prover:   prover,
		cooldown: DefaultCooldown,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State reports the current loop state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scanner) stateLocked() State {
	switch {
	case s.stopped:
		return StateStopped
	case s.busy || s.now().Before(s.coolingTill):
		return StateCooling
	default:
		return StateScanning
	}
}

// Stop ends the loop; frames are refused until Resume.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Resume re-arms a stopped scanner immediately.
func (s *Scanner) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
	s.coolingTill = time.Time{}
}

// HandleFrame dispatches one decoded frame. Frames arriving while cooling
// come back Ignored.
func (s *Scanner) HandleFrame(ctx context.Context, raw string) (Outcome, error) {
	s.mu.Lock()
	switch s.stateLocked() {
	case StateStopped:
		s.mu.Unlock()
		return Outcome{}, ErrStopped
	case StateCooling:
		s.mu.Unlock()
		return Outcome{Ignored: true}, nil
	}
	s.busy = true
	s.mu.Unlock()

	out := s.handle(ctx, raw)

	s.mu.Lock()
	s.busy = false
	s.coolingTill = s.now().Add(s.cooldown)
	s.mu.Unlock()
	return out, nil
}

func (s *Scanner) handle(ctx context.Context, raw string) Outcome {
	action := Dispatch(raw)
	out := Outcome{Action: action}

	switch a := action.(type) {
	case Reject:
		s.logger.InfoContext(ctx, "scan rejected", "code", string(a.Code), "reason", a.Reason)
	case OfferCredentialImport:
		res, err := s.importer.Import(ctx, a.Credential)
		if err != nil {
			out.Err = err
			s.logger.WarnContext(ctx, "credential import failed", "error", err)
			break
		}
		out.Import = &res
	case NavigateToProofFlow:
		if s.prover == nil {
			out.Err = dErrors.New(dErrors.CodeInternal, "no proof flow configured")
			break
		}
		res, err := s.prover.Prove(ctx, a.RequestID)
		if err != nil {
			out.Err = err
			s.logger.WarnContext(ctx, "proof flow failed",
				"request_id", a.RequestID.String(),
				"error", err,
			)
			break
		}
		out.Proof = res
	}
	return out
}
