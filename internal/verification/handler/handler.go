package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/platform/httputil"
	"mediguard/pkg/requestcontext"
)

// Service defines the verification operations exposed over HTTP.
type Service interface {
	CreateRequest(ctx context.Context, req models.CreateRequest) (*models.Session, error)
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.Session, error)
	SubmitProof(ctx context.Context, req models.SubmitProofRequest) (*models.SubmitProofResult, error)
	ListAudit(ctx context.Context, providerID id.ProviderID, limit int) ([]models.AuditRecord, error)
	GetSessionStatus(ctx context.Context, requestID id.RequestID) (*models.SessionStatus, error)
}

const defaultQRSize = 256

// Handler serves the provider-facing verification API.
type Handler struct {
	service Service
	logger  *slog.Logger
	qrSize  int
}

// New creates a verification Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		qrSize:  defaultQRSize,
	}
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/provider/request", h.HandleCreateRequest)
	r.Get("/api/provider/request/{requestID}", h.HandleGetRequest)
	r.Get("/api/provider/request/{requestID}/status", h.HandleSessionStatus)
	r.Get("/api/provider/request/{requestID}/qr.png", h.HandleRequestQR)
	r.Post("/api/provider/verify", h.HandleSubmitProof)
	r.Get("/api/provider/{providerID}/audit", h.HandleListAudit)
}

func (h *Handler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[CreateRequestBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, err := body.toModel()
	if err != nil {
		h.logger.WarnContext(ctx, "invalid create request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.CreateRequest(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create verification request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

// HandleRequestQR renders the session's code payload as a PNG.
func (h *Handler) HandleRequestQR(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	png, err := qrcode.Encode(session.CodePayload, qrcode.Medium, h.qrSize)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render qr code",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png) //nolint:errcheck // headers already sent
}

func (h *Handler) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetSessionStatus(ctx, sessionID)
	if err != nil {
		h.logErr(ctx, "failed to resolve session status", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SessionStatusResponse{
		RequestID:     status.RequestID.String(),
		Status:        string(status.Status),
		Attempts:      status.Attempts,
		LastAttemptAt: status.LastAttemptAt,
	})
}

func (h *Handler) HandleSubmitProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[SubmitProofBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, err := body.toModel()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.SubmitProof(ctx, req)
	if err != nil {
		h.logErr(ctx, "failed to submit proof", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SubmitProofResponse{
		VerificationID: result.VerificationID.String(),
		Verified:       result.Verified,
		Timestamp:      result.Timestamp,
	})
}

func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	providerID, err := id.ParseProviderID(chi.URLParam(r, "providerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
	}

	records, err := h.service.ListAudit(ctx, providerID, limit)
	if err != nil {
		h.logErr(ctx, "failed to list audit records", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAuditListResponse(records))
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	ctx := r.Context()
	sessionID, ok := h.parseRequestID(w, r)
	if !ok {
		return nil, false
	}

	session, err := h.service.GetRequest(ctx, sessionID)
	if err != nil {
		h.logErr(ctx, "failed to load verification request", err)
		httputil.WriteError(w, err)
		return nil, false
	}
	return session, true
}

func (h *Handler) parseRequestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return requestID, true
}

// logErr logs client errors at warn and everything else at error.
func (h *Handler) logErr(ctx context.Context, msg string, err error) {
	level := slog.LevelError
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
