package models

import (
	"time"

	id "mediguard/pkg/domain"
)

// Issuer is an authority whose Ed25519 key signs credentials. PublicKey is
// unpadded base64url of the raw 32-byte key.
type Issuer struct {
	ID        id.IssuerID
	Name      string
	PublicKey string
	CreatedAt time.Time
}

// IssueRequest asks an issuer to sign a set of attributes.
type IssueRequest struct {
	IssuerID       id.IssuerID
	CredentialType string
	Attributes     map[string]string
}

// IssuedCredential is the signed result plus the offer code a wallet scans.
type IssuedCredential struct {
	CredentialID    string
	CredentialType  string
	IssuerID        id.IssuerID
	Signature       string
	IssuerPublicKey string
	Attributes      map[string]string
	CredentialOffer string
	IssuedAt        time.Time
}
