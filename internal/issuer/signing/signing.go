// Package signing derives issuer keys and produces the EdDSA JWTs used as
// credential signatures.
package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
)

// MinMasterKeyLength is the shortest master secret accepted for derivation.
const MinMasterKeyLength = 32

var derivationSalt = []byte("mediguard/issuer-key/v1")

// CredentialClaims is the signed body of a credential. The registered ID is
// the credential ID and Issuer is the issuer ID.
type CredentialClaims struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attrs"`
	jwt.RegisteredClaims
}

// DeriveKey returns the issuer's Ed25519 key. The same master key and issuer
// ID always yield the same key, so restarts do not invalidate credentials.
func DeriveKey(masterKey []byte, issuerID id.IssuerID) (ed25519.PrivateKey, error) {
	if len(masterKey) < MinMasterKeyLength {
		return nil, fmt.Errorf("master key must be at least %d bytes", MinMasterKeyLength)
	}
	if issuerID.IsNil() {
		return nil, errors.New("issuer id is required")
	}
	seed := make([]byte, ed25519.SeedSize)
	r := hkdf.New(sha256.New, masterKey, derivationSalt, []byte(issuerID))
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("derive issuer key: %w", err)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// EncodePublicKey renders a public key for the API and code payloads.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}

// DecodePublicKey is the inverse of EncodePublicKey.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid issuer public key")
	}
	return ed25519.PublicKey(raw), nil
}

// Sign issues the compact JWS carried as a credential's sig field.
func Sign(key ed25519.PrivateKey, issuerID id.IssuerID, credentialID, credentialType string, attrs map[string]string, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, CredentialClaims{
		Type:       credentialType,
		Attributes: attrs,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       credentialID,
			Issuer:   issuerID.String(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// Verify checks a credential signature against pub and returns its claims.
func Verify(signature string, pub ed25519.PublicKey) (*CredentialClaims, error) {
	if signature == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "empty signature")
	}
	claims := new(CredentialClaims)
	parsed, err := jwt.ParseWithClaims(signature, claims, func(t *jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) || errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid credential signature")
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential signature parse failed")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid credential signature")
	}
	return claims, nil
}
