// Package prove runs the holder side of a verification: fetch the request,
// pick a credential that can answer it, and submit the proof.
package prove

import (
	"context"
	"log/slog"
	"slices"

	"mediguard/internal/credential"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
)

// Backend is the slice of the backend API the proof flow needs.
type Backend interface {
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.Session, error)
	IssuerPublicKey(ctx context.Context, issuerID id.IssuerID) (string, error)
	SubmitProof(ctx context.Context, req models.SubmitProofRequest) (*models.SubmitProofResult, error)
}

// Wallet lists the holder's credentials.
type Wallet interface {
	List(ctx context.Context) []credential.Credential
}

// Result describes a completed submission.
type Result struct {
	Session    models.Session
	Credential credential.Credential
	Verified   bool
	Submission models.SubmitProofResult
}

// Flow is the ProofFlow handed verification intents by the scanner.
type Flow struct {
	backend Backend
	wallet  Wallet
	logger  *slog.Logger
}

type Option func(*Flow)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func New(backend Backend, wallet Wallet, opts ...Option) *Flow {
	f := &Flow{backend: backend, wallet: wallet, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Prove answers the verification request. Only the predicate attribute is
// revealed.
func (f *Flow) Prove(ctx context.Context, requestID id.RequestID) (*Result, error) {
	session, err := f.backend.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	cred, err := Select(f.wallet.List(ctx), session.Predicate)
	if err != nil {
		return nil, err
	}

	issuerID, err := id.ParseIssuerID(cred.Issuer)
	if err != nil {
		return nil, dErrors.Recode(err, dErrors.CodeInvalidCredential, "credential issuer is not valid")
	}
	publicKey, err := f.backend.IssuerPublicKey(ctx, issuerID)
	if err != nil {
		return nil, err
	}

	attr := session.Predicate.Attribute
	submission, err := f.backend.SubmitProof(ctx, models.SubmitProofRequest{
		RequestID:          requestID,
		Proof:              cred.Signature,
		RevealedAttributes: map[string]string{attr: cred.Attributes[attr]},
		IssuerPublicKey:    publicKey,
	})
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "proof submitted",
		"request_id", requestID.String(),
		"credential_id", cred.ID,
		"verified", submission.Verified,
	)
	return &Result{
		Session:    *session,
		Credential: cred,
		Verified:   submission.Verified,
		Submission: *submission,
	}, nil
}

// Select picks the most recently imported credential that satisfies p,
// falling back to the most recent one that at least carries p's attribute.
func Select(creds []credential.Credential, p predicate.Predicate) (credential.Credential, error) {
	var carrying *credential.Credential
	for _, c := range slices.Backward(creds) {
		if _, ok := c.Attributes[p.Attribute]; !ok {
			continue
		}
		if predicate.Evaluate(p, c.Attributes) {
			return c, nil
		}
		if carrying == nil {
			carrying = &c
		}
	}
	if carrying != nil {
		return *carrying, nil
	}
	return credential.Credential{}, dErrors.New(dErrors.CodeNotFound,
		"no stored credential carries "+p.Attribute)
}
