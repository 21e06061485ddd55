// Package codescheme encodes and decodes the mediguard:// URIs carried by
// scannable codes.
//
// Two intents exist:
//
//	mediguard://verify?req=<request_id>
//	mediguard://credential?payload=<url-encoded credential JSON>
//
// Decoding is pure: it never touches storage or the network.
package codescheme

import (
	"encoding/json"
	"net/url"
	"strings"

	"mediguard/internal/credential"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
)

const (
	Scheme = "mediguard"

	TokenVerify     = "verify"
	TokenCredential = "credential"

	ParamRequest = "req"
	ParamPayload = "payload"
)

// Intent is the closed set of actions a decoded code can request.
type Intent interface {
	intent()
}

// ImportCredential asks the holder to store an issued credential.
type ImportCredential struct {
	Credential credential.Credential
}

// SubmitProof asks the holder to prove the predicate of a verification request.
type SubmitProof struct {
	RequestID id.RequestID
}

func (ImportCredential) intent() {}
func (SubmitProof) intent()      {}

// EncodeVerify renders the code payload for a verification request.
func EncodeVerify(requestID id.RequestID) string {
	u := url.URL{
		Scheme:   Scheme,
		Host:     TokenVerify,
		RawQuery: url.Values{ParamRequest: {requestID.String()}}.Encode(),
	}
	return u.String()
}

// EncodeCredentialOffer renders the code payload that imports c into a wallet.
func EncodeCredentialOffer(c credential.Credential) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode credential offer")
	}
	u := url.URL{
		Scheme:   Scheme,
		Host:     TokenCredential,
		RawQuery: url.Values{ParamPayload: {string(payload)}}.Encode(),
	}
	return u.String(), nil
}

// Decode classifies a raw scanned string.
func Decode(raw string) (Intent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeMalformedCode, "not a MediGuard code")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, dErrors.New(dErrors.CodeMalformedCode, "not a MediGuard code")
	}
	if u.Scheme != Scheme {
		return nil, dErrors.New(dErrors.CodeWrongScheme, "invalid protocol, must be "+Scheme+"://")
	}

	switch intentToken(u) {
	case TokenVerify:
		return decodeVerify(u.Query())
	case TokenCredential:
		return decodeCredential(u.Query())
	default:
		return nil, dErrors.New(dErrors.CodeUnknownIntent, "unknown MediGuard action")
	}
}

// intentToken reads the action from the host, or from the first path segment
// for the opaque and triple-slash forms (mediguard:verify, mediguard:///verify).
func intentToken(u *url.URL) string {
	if u.Host != "" {
		return strings.ToLower(u.Host)
	}
	rest := u.Opaque
	if rest == "" {
		rest = u.Path
	}
	rest = strings.TrimLeft(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}

func decodeVerify(q url.Values) (Intent, error) {
	raw := q.Get(ParamRequest)
	if raw == "" {
		return nil, dErrors.New(dErrors.CodeMissingField, "no request ID found")
	}
	requestID, err := id.ParseRequestID(raw)
	if err != nil {
		return nil, dErrors.Recode(err, dErrors.CodeMalformedPayload, "request ID is not valid")
	}
	return SubmitProof{RequestID: requestID}, nil
}

func decodeCredential(q url.Values) (Intent, error) {
	payload := q.Get(ParamPayload)
	if payload == "" {
		return nil, dErrors.New(dErrors.CodeMissingField, "no payload found")
	}
	c, err := credential.ParseOffer([]byte(payload))
	if err != nil {
		return nil, err
	}
	return ImportCredential{Credential: c}, nil
}
