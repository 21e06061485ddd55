package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	issuerModels "mediguard/internal/issuer/models"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/platform/circuit"
	"mediguard/pkg/requestcontext"
	"mediguard/pkg/testutil"
)

type ClientSuite struct {
	suite.Suite
	mux    *http.ServeMux
	server *httptest.Server
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	var err error
	s.client, err = New(s.server.URL+"/",
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithOpenTimeout(time.Hour))),
	)
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *ClientSuite) TestNew_RejectsBadURL() {
	_, err := New("not a url")
	s.Error(err)
	_, err = New("")
	s.Error(err)
}

func (s *ClientSuite) TestCreateRequest() {
	rid := testutil.TestIDs.RequestID1
	s.mux.HandleFunc("POST /api/provider/request", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal("apollo-pharmacy", body["provider_id"])
		s.Equal("age_18", body["catalog_key"])
		s.NotContains(body, "predicate")
		s.Equal("trace-1", r.Header.Get("X-Request-ID"))
		s.Equal("mediguard-cli/1.0", r.Header.Get("User-Agent"))

		writeJSON(w, http.StatusCreated, map[string]any{
			"request_id":               rid.String(),
			"provider_id":              "apollo-pharmacy",
			"provider_type":            "pharmacy",
			"predicate":                map[string]string{"type": "COMPARISON", "attribute": "age", "operator": "GTE", "value": "18"},
			"predicate_human_readable": "age >= 18",
			"qr_code_data":             "mediguard://verify?req=" + rid.String(),
			"created_at":               "2026-03-01T12:00:00Z",
		})
	})

	ctx := requestcontext.WithRequestID(context.Background(), "trace-1")
	session, err := s.client.CreateRequest(ctx, CreateRequestInput{
		ProviderID:   "apollo-pharmacy",
		ProviderType: "pharmacy",
		CatalogKey:   predicate.KeyAge18,
	})
	s.Require().NoError(err)
	s.Equal(rid, session.RequestID)
	s.Equal(predicate.OpGTE, session.Predicate.Operator)
	s.Equal("mediguard://verify?req="+rid.String(), session.CodePayload)
	s.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), session.CreatedAt.UTC())
}

func (s *ClientSuite) TestErrorMapping() {
	s.mux.HandleFunc("GET /api/provider/request/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "error_description": "verification request not found"})
	})
	s.mux.HandleFunc("POST /api/provider/request", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_predicate_kind", "error_description": "unknown predicate kind"})
	})

	_, err := s.client.GetRequest(context.Background(), testutil.TestIDs.RequestID1)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(err.Error(), "verification request not found")

	_, err = s.client.CreateRequest(context.Background(), CreateRequestInput{ProviderID: "p", CatalogKey: "nope"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownPredicateKind))

	s.Equal(circuit.StateClosed, s.client.breaker.State(), "4xx must not count against the backend")
}

func (s *ClientSuite) TestBackendUnavailable() {
	var calls atomic.Int32
	s.mux.HandleFunc("GET /api/provider/{providerID}/audit", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backend_unavailable"})
	})

	_, err := s.client.ListAudit(context.Background(), "apollo-pharmacy", 10)
	s.True(dErrors.HasCode(err, dErrors.CodeBackendUnavailable))
	_, err = s.client.ListAudit(context.Background(), "apollo-pharmacy", 10)
	s.True(dErrors.HasCode(err, dErrors.CodeBackendUnavailable))

	// Breaker is open now: no further calls reach the server.
	_, err = s.client.ListAudit(context.Background(), "apollo-pharmacy", 10)
	s.True(dErrors.HasCode(err, dErrors.CodeBackendUnavailable))
	s.Equal(int32(2), calls.Load())
}

func (s *ClientSuite) TestTransportFailure() {
	s.server.Close()
	_, err := s.client.GetSessionStatus(context.Background(), testutil.TestIDs.RequestID1)
	s.True(dErrors.HasCode(err, dErrors.CodeBackendUnavailable))
}

func (s *ClientSuite) TestListAudit() {
	rid := testutil.TestIDs.RequestID1
	vid1, vid2, vid3 := id.NewVerificationID(), id.NewVerificationID(), id.NewVerificationID()
	s.mux.HandleFunc("GET /api/provider/{providerID}/audit", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("apollo-pharmacy", r.PathValue("providerID"))
		s.Equal("5", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"verifications": []map[string]any{
			{"verification_id": vid1.String(), "provider_id": "apollo-pharmacy", "request_id": rid.String(), "verified": true, "predicate_human_readable": "age >= 18", "timestamp": "2026-03-01T12:00:05Z"},
			{"verification_id": vid2.String(), "provider_id": "apollo-pharmacy", "verified": false, "predicate_human_readable": "age >= 18", "timestamp": "2026-03-01T12:00:04Z"},
			{"verification_id": vid3.String(), "provider_id": "apollo-pharmacy", "request_id": "garbage", "verified": true, "predicate_human_readable": "age >= 18", "timestamp": "2026-03-01T12:00:03Z"},
		}})
	})

	records, err := s.client.ListAudit(context.Background(), "apollo-pharmacy", 5)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(rid, records[0].RequestID)
	s.True(records[0].Verified)
	s.False(records[1].HasRequestID())
	s.Equal(vid2, records[1].VerificationID)

	page, err := s.client.ListAuditPage(context.Background(), "apollo-pharmacy", 5)
	s.Require().NoError(err)
	s.Len(page.Records, 2)
	s.Equal(1, page.Skipped)
}

func (s *ClientSuite) TestSubmitProofAndStatus() {
	rid := testutil.TestIDs.RequestID1
	vid := id.NewVerificationID()
	s.mux.HandleFunc("POST /api/provider/verify", func(w http.ResponseWriter, r *http.Request) {
		var body submitProofBody
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal(rid.String(), body.RequestID)
		s.Equal(map[string]string{"age": "34"}, body.RevealedAttributes)
		writeJSON(w, http.StatusOK, map[string]any{"verification_id": vid.String(), "verified": true, "timestamp": "2026-03-01T12:00:00Z"})
	})
	s.mux.HandleFunc("GET /api/provider/request/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"request_id": rid.String(), "status": "VERIFIED", "attempts": 1})
	})

	res, err := s.client.SubmitProof(context.Background(), models.SubmitProofRequest{
		RequestID:          rid,
		Proof:              "sig",
		RevealedAttributes: map[string]string{"age": "34"},
		IssuerPublicKey:    "pk",
	})
	s.Require().NoError(err)
	s.Equal(vid, res.VerificationID)
	s.True(res.Verified)

	status, err := s.client.GetSessionStatus(context.Background(), rid)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, status.Status)
	s.Equal(1, status.Attempts)
}

func (s *ClientSuite) TestIssuerEndpoints() {
	s.mux.HandleFunc("POST /api/hospital/init", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"hospital_id": "demo_issuer", "hospital_name": "Demo", "public_key": "pk"})
	})
	s.mux.HandleFunc("GET /api/hospital/{id}/public-key", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"public_key": "pk"})
	})
	s.mux.HandleFunc("POST /api/hospital/issue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"credential_id": "cred-1", "credential_type": "age_proof", "signature": "sig",
			"issuer_public_key": "pk", "attributes": map[string]string{"age": "34"},
			"credential_offer": "mediguard://credential?payload=x",
		})
	})

	ctx := context.Background()
	issuer, err := s.client.InitHospital(ctx, "demo_issuer", "Demo")
	s.Require().NoError(err)
	s.Equal(id.IssuerID("demo_issuer"), issuer.ID)

	key, err := s.client.IssuerPublicKey(ctx, "demo_issuer")
	s.Require().NoError(err)
	s.Equal("pk", key)

	issued, err := s.client.IssueCredential(ctx, issuerModels.IssueRequest{
		IssuerID: "demo_issuer", CredentialType: "age_proof", Attributes: map[string]string{"age": "34"},
	})
	s.Require().NoError(err)
	s.Equal("cred-1", issued.CredentialID)
	s.Equal(id.IssuerID("demo_issuer"), issued.IssuerID)
}

func TestQRCodeURL(t *testing.T) {
	c, err := New("http://localhost:8080")
	require.NoError(t, err)
	rid := testutil.TestIDs.RequestID1
	assert.Equal(t, "http://localhost:8080/api/provider/request/"+rid.String()+"/qr.png", c.QRCodeURL(rid))
}
