// Package proof is the reference verifier for submitted proofs. A proof is
// the credential signature issued by a registered hospital; the verifier
// checks the signature, that every revealed attribute was signed, and that
// the session predicate holds on what was revealed.
package proof

import (
	"context"
	"log/slog"

	issuerModels "mediguard/internal/issuer/models"
	"mediguard/internal/issuer/signing"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	dErrors "mediguard/pkg/domain-errors"
)

// IssuerDirectory resolves a public key to its registered issuer.
type IssuerDirectory interface {
	IssuerForKey(ctx context.Context, publicKey string) (*issuerModels.Issuer, error)
}

// Verifier implements the verification service's proof port.
type Verifier struct {
	issuers IssuerDirectory
	logger  *slog.Logger
}

type Option func(*Verifier)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func New(issuers IssuerDirectory, opts ...Option) *Verifier {
	v := &Verifier{issuers: issuers, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify returns (false, nil) for any proof that does not check out. An error
// is returned only when the issuer directory itself cannot be consulted.
func (v *Verifier) Verify(ctx context.Context, check models.ProofCheck) (bool, error) {
	reject := func(reason string) (bool, error) {
		v.logger.DebugContext(ctx, "proof rejected",
			"request_id", check.Session.RequestID.String(),
			"reason", reason,
		)
		return false, nil
	}

	if check.IssuerPublicKey == "" {
		return reject("missing issuer public key")
	}
	pub, err := signing.DecodePublicKey(check.IssuerPublicKey)
	if err != nil {
		return reject("malformed issuer public key")
	}

	issuer, err := v.issuers.IssuerForKey(ctx, check.IssuerPublicKey)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return reject("unknown issuer")
		}
		return false, err
	}

	claims, err := signing.Verify(check.Proof, pub)
	if err != nil {
		return reject(err.Error())
	}
	if claims.Issuer != issuer.ID.String() {
		return reject("issuer mismatch")
	}

	for name, value := range check.RevealedAttributes {
		signed, ok := claims.Attributes[name]
		if !ok || signed != value {
			return reject("revealed attribute " + name + " was not signed")
		}
	}

	p := check.Session.Predicate
	if _, ok := check.RevealedAttributes[p.Attribute]; !ok {
		return reject("predicate attribute not revealed")
	}
	if !predicate.Evaluate(p, check.RevealedAttributes) {
		return reject("predicate not satisfied")
	}
	return true, nil
}
