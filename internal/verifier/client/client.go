// Package client is the HTTP client for the verification and issuer APIs,
// shared by the verifier and wallet binaries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	issuerModels "mediguard/internal/issuer/models"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/platform/circuit"
	"mediguard/pkg/platform/httputil"
	"mediguard/pkg/requestcontext"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "mediguard-cli/1.0"
	maxResponseBytes = 1 << 20
)

// Client talks to a mediguard backend. Transport failures and 5xx responses
// surface as backend_unavailable; repeated failures open the breaker and
// later calls fail fast without touching the network.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *circuit.Breaker
	userAgent  string
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// WithUserAgent sets the User-Agent the backend records as the audit device.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		breaker:    circuit.New("mediguard-backend"),
		userAgent:  defaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// CreateRequestInput carries either an explicit predicate or a catalog key.
type CreateRequestInput struct {
	ProviderID   id.ProviderID
	ProviderName string
	ProviderType string
	Predicate    *predicate.Predicate
	CatalogKey   predicate.CatalogKey
}

type createRequestBody struct {
	ProviderID   string               `json:"provider_id"`
	ProviderName string               `json:"provider_name,omitempty"`
	ProviderType string               `json:"provider_type,omitempty"`
	Predicate    *predicate.Predicate `json:"predicate,omitempty"`
	CatalogKey   string               `json:"catalog_key,omitempty"`
}

type sessionBody struct {
	RequestID              string              `json:"request_id"`
	ProviderID             string              `json:"provider_id"`
	ProviderName           string              `json:"provider_name"`
	ProviderType           string              `json:"provider_type"`
	Predicate              predicate.Predicate `json:"predicate"`
	PredicateHumanReadable string              `json:"predicate_human_readable"`
	QRCodeData             string              `json:"qr_code_data"`
	CreatedAt              time.Time           `json:"created_at"`
}

type statusBody struct {
	RequestID     string     `json:"request_id"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
}

type submitProofBody struct {
	RequestID          string            `json:"request_id"`
	Proof              string            `json:"proof"`
	RevealedAttributes map[string]string `json:"revealed_attributes,omitempty"`
	IssuerPublicKey    string            `json:"issuer_public_key,omitempty"`
}

type submitProofResultBody struct {
	VerificationID string    `json:"verification_id"`
	Verified       bool      `json:"verified"`
	Timestamp      time.Time `json:"timestamp"`
}

type auditRecordBody struct {
	VerificationID         string    `json:"verification_id"`
	ProviderID             string    `json:"provider_id"`
	RequestID              string    `json:"request_id"`
	Verified               bool      `json:"verified"`
	PredicateHumanReadable string    `json:"predicate_human_readable"`
	Device                 string    `json:"device"`
	Timestamp              time.Time `json:"timestamp"`
}

type auditListBody struct {
	Verifications []auditRecordBody `json:"verifications"`
}

type hospitalInitBody struct {
	HospitalID   string `json:"hospital_id"`
	HospitalName string `json:"hospital_name"`
}

type hospitalBody struct {
	HospitalID   string    `json:"hospital_id"`
	HospitalName string    `json:"hospital_name"`
	PublicKey    string    `json:"public_key"`
	CreatedAt    time.Time `json:"created_at"`
}

type issueBody struct {
	HospitalID     string            `json:"hospital_id"`
	CredentialType string            `json:"credential_type"`
	Attributes     map[string]string `json:"attributes"`
}

type issuedBody struct {
	CredentialID    string            `json:"credential_id"`
	CredentialType  string            `json:"credential_type"`
	Signature       string            `json:"signature"`
	IssuerPublicKey string            `json:"issuer_public_key"`
	Attributes      map[string]string `json:"attributes"`
	CredentialOffer string            `json:"credential_offer"`
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// CreateRequest opens a verification session.
func (c *Client) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.Session, error) {
	var out sessionBody
	err := c.do(ctx, http.MethodPost, "/api/provider/request", createRequestBody{
		ProviderID:   in.ProviderID.String(),
		ProviderName: in.ProviderName,
		ProviderType: in.ProviderType,
		Predicate:    in.Predicate,
		CatalogKey:   string(in.CatalogKey),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toModel()
}

// GetRequest fetches a session, as the holder does before proving.
func (c *Client) GetRequest(ctx context.Context, requestID id.RequestID) (*models.Session, error) {
	var out sessionBody
	if err := c.do(ctx, http.MethodGet, "/api/provider/request/"+requestID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.toModel()
}

// GetSessionStatus fetches the backend's view of a session outcome.
func (c *Client) GetSessionStatus(ctx context.Context, requestID id.RequestID) (*models.SessionStatus, error) {
	var out statusBody
	if err := c.do(ctx, http.MethodGet, "/api/provider/request/"+requestID.String()+"/status", nil, &out); err != nil {
		return nil, err
	}
	rid, err := id.ParseRequestID(out.RequestID)
	if err != nil {
		return nil, malformed(err)
	}
	return &models.SessionStatus{
		RequestID:     rid,
		Status:        models.Status(out.Status),
		Attempts:      out.Attempts,
		LastAttemptAt: out.LastAttemptAt,
	}, nil
}

// SubmitProof submits a holder proof for a session.
func (c *Client) SubmitProof(ctx context.Context, req models.SubmitProofRequest) (*models.SubmitProofResult, error) {
	var out submitProofResultBody
	err := c.do(ctx, http.MethodPost, "/api/provider/verify", submitProofBody{
		RequestID:          req.RequestID.String(),
		Proof:              req.Proof,
		RevealedAttributes: req.RevealedAttributes,
		IssuerPublicKey:    req.IssuerPublicKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	vid, err := id.ParseVerificationID(out.VerificationID)
	if err != nil {
		return nil, malformed(err)
	}
	return &models.SubmitProofResult{VerificationID: vid, Verified: out.Verified, Timestamp: out.Timestamp}, nil
}

// ListAudit fetches the provider's audit records, newest first, leaving out
// rows that could not be decoded.
func (c *Client) ListAudit(ctx context.Context, providerID id.ProviderID, limit int) ([]models.AuditRecord, error) {
	page, err := c.ListAuditPage(ctx, providerID, limit)
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

// ListAuditPage fetches one page of the provider's audit feed. limit <= 0
// leaves the page size to the backend. Rows with unparsable identifiers are
// counted in Skipped instead of returned; a record whose request_id cannot be
// read must never be taken for one that carries none.
func (c *Client) ListAuditPage(ctx context.Context, providerID id.ProviderID, limit int) (models.AuditPage, error) {
	path := "/api/provider/" + url.PathEscape(providerID.String()) + "/audit"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out auditListBody
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return models.AuditPage{}, err
	}

	page := models.AuditPage{Records: make([]models.AuditRecord, 0, len(out.Verifications))}
	for _, v := range out.Verifications {
		record, err := v.toModel()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed audit record",
				"verification_id", v.VerificationID,
				"error", err,
			)
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, record)
	}
	return page, nil
}

// InitHospital registers an issuer. It is idempotent on the backend.
func (c *Client) InitHospital(ctx context.Context, issuerID id.IssuerID, name string) (*issuerModels.Issuer, error) {
	var out hospitalBody
	if err := c.do(ctx, http.MethodPost, "/api/hospital/init", hospitalInitBody{
		HospitalID:   issuerID.String(),
		HospitalName: name,
	}, &out); err != nil {
		return nil, err
	}
	iid, err := id.ParseIssuerID(out.HospitalID)
	if err != nil {
		return nil, malformed(err)
	}
	return &issuerModels.Issuer{ID: iid, Name: out.HospitalName, PublicKey: out.PublicKey, CreatedAt: out.CreatedAt}, nil
}

// IssuerPublicKey fetches the encoded verification key of an issuer.
func (c *Client) IssuerPublicKey(ctx context.Context, issuerID id.IssuerID) (string, error) {
	var out struct {
		PublicKey string `json:"public_key"`
	}
	path := "/api/hospital/" + url.PathEscape(issuerID.String()) + "/public-key"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.PublicKey, nil
}

// IssueCredential asks an issuer to sign attributes into a credential offer.
func (c *Client) IssueCredential(ctx context.Context, req issuerModels.IssueRequest) (*issuerModels.IssuedCredential, error) {
	var out issuedBody
	if err := c.do(ctx, http.MethodPost, "/api/hospital/issue", issueBody{
		HospitalID:     req.IssuerID.String(),
		CredentialType: req.CredentialType,
		Attributes:     req.Attributes,
	}, &out); err != nil {
		return nil, err
	}
	return &issuerModels.IssuedCredential{
		CredentialID:    out.CredentialID,
		CredentialType:  out.CredentialType,
		IssuerID:        req.IssuerID,
		Signature:       out.Signature,
		IssuerPublicKey: out.IssuerPublicKey,
		Attributes:      out.Attributes,
		CredentialOffer: out.CredentialOffer,
	}, nil
}

// QRCodeURL is the PNG rendering of a session's code.
func (c *Client) QRCodeURL(requestID id.RequestID) string {
	return c.baseURL.JoinPath("api", "provider", "request", requestID.String(), "qr.png").String()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.breaker.Allow() {
		return dErrors.New(dErrors.CodeBackendUnavailable, "backend unavailable: circuit open")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if rid := requestcontext.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.recordFailure(ctx)
		return dErrors.Recode(err, dErrors.CodeBackendUnavailable, "backend unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(ctx)
		return dErrors.Recode(err, dErrors.CodeBackendUnavailable, "failed to read backend response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(ctx)
		return decodeError(resp.StatusCode, raw)
	}
	c.recordSuccess(ctx)

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return malformed(err)
	}
	return nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "backend circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "backend circuit closed", "breaker", c.breaker.Name())
	}
}

func decodeError(status int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	code := httputil.HTTPStatusToDomainCode(status, eb.Error)
	msg := eb.ErrorDescription
	if msg == "" {
		msg = fmt.Sprintf("backend returned %d", status)
	}
	return dErrors.New(code, msg)
}

func malformed(err error) error {
	return dErrors.Recode(err, dErrors.CodeInternal, "malformed backend response")
}

func (b sessionBody) toModel() (*models.Session, error) {
	rid, err := id.ParseRequestID(b.RequestID)
	if err != nil {
		return nil, malformed(err)
	}
	pid, err := id.ParseProviderID(b.ProviderID)
	if err != nil {
		return nil, malformed(err)
	}
	return &models.Session{
		RequestID:              rid,
		ProviderID:             pid,
		ProviderName:           b.ProviderName,
		ProviderType:           b.ProviderType,
		Predicate:              b.Predicate,
		PredicateHumanReadable: b.PredicateHumanReadable,
		CodePayload:            b.QRCodeData,
		CreatedAt:              b.CreatedAt,
	}, nil
}

func (b auditRecordBody) toModel() (models.AuditRecord, error) {
	vid, err := id.ParseVerificationID(b.VerificationID)
	if err != nil {
		return models.AuditRecord{}, err
	}
	pid, err := id.ParseProviderID(b.ProviderID)
	if err != nil {
		return models.AuditRecord{}, err
	}
	record := models.AuditRecord{
		VerificationID:         vid,
		ProviderID:             pid,
		Verified:               b.Verified,
		PredicateHumanReadable: b.PredicateHumanReadable,
		Device:                 b.Device,
		Timestamp:              b.Timestamp,
	}
	if b.RequestID != "" {
		if record.RequestID, err = id.ParseRequestID(b.RequestID); err != nil {
			return models.AuditRecord{}, err
		}
	}
	return record, nil
}
