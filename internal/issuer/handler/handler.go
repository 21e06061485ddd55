package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediguard/internal/issuer/models"
	id "mediguard/pkg/domain"
	"mediguard/pkg/platform/httputil"
	s "mediguard/pkg/platform/strings"
	"mediguard/pkg/platform/validation"
	"mediguard/pkg/requestcontext"
)

// Service defines the issuer operations exposed over HTTP.
type Service interface {
	Init(ctx context.Context, issuerID id.IssuerID, name string) (*models.Issuer, error)
	PublicKey(ctx context.Context, issuerID id.IssuerID) (string, error)
	Issue(ctx context.Context, req models.IssueRequest) (*models.IssuedCredential, error)
}

// Handler serves the hospital (issuer) API.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the issuer routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/hospital/init", h.HandleInit)
	r.Get("/api/hospital/{hospitalID}/public-key", h.HandlePublicKey)
	r.Post("/api/hospital/issue", h.HandleIssue)
}

type InitRequest struct {
	HospitalID   string `json:"hospital_id" validate:"required,max=64"`
	HospitalName string `json:"hospital_name" validate:"required,notblank,max=200"`
}

func (r *InitRequest) Normalize() { s.TrimAll(&r.HospitalID, &r.HospitalName) }
func (r *InitRequest) Validate() error {
	return validation.Struct(r)
}

type InitResponse struct {
	HospitalID   string    `json:"hospital_id"`
	HospitalName string    `json:"hospital_name"`
	PublicKey    string    `json:"public_key"`
	CreatedAt    time.Time `json:"created_at"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type IssueRequest struct {
	HospitalID     string            `json:"hospital_id" validate:"required,max=64"`
	CredentialType string            `json:"credential_type" validate:"required,notblank,max=64"`
	Attributes     map[string]string `json:"attributes" validate:"required,min=1"`
}

func (r *IssueRequest) Normalize() {
	s.TrimAll(&r.HospitalID, &r.CredentialType)
	r.Attributes = s.TrimAttributes(r.Attributes)
}
func (r *IssueRequest) Validate() error {
	return validation.Struct(r)
}

type IssueResponse struct {
	CredentialID    string            `json:"credential_id"`
	CredentialType  string            `json:"credential_type"`
	Signature       string            `json:"signature"`
	IssuerPublicKey string            `json:"issuer_public_key"`
	Attributes      map[string]string `json:"attributes"`
	CredentialOffer string            `json:"credential_offer"`
}

func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	issuerID, err := id.ParseIssuerID(req.HospitalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issuer, err := h.service.Init(ctx, issuerID, req.HospitalName)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to init hospital",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, InitResponse{
		HospitalID:   issuer.ID.String(),
		HospitalName: issuer.Name,
		PublicKey:    issuer.PublicKey,
		CreatedAt:    issuer.CreatedAt,
	})
}

func (h *Handler) HandlePublicKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuerID, err := id.ParseIssuerID(chi.URLParam(r, "hospitalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	key, err := h.service.PublicKey(ctx, issuerID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to get hospital public key",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PublicKeyResponse{PublicKey: key})
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	issuerID, err := id.ParseIssuerID(req.HospitalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issued, err := h.service.Issue(ctx, models.IssueRequest{
		IssuerID:       issuerID,
		CredentialType: req.CredentialType,
		Attributes:     req.Attributes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue credential",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		CredentialID:    issued.CredentialID,
		CredentialType:  issued.CredentialType,
		Signature:       issued.Signature,
		IssuerPublicKey: issued.IssuerPublicKey,
		Attributes:      issued.Attributes,
		CredentialOffer: issued.CredentialOffer,
	})
}
