package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mediguard/internal/codescheme"
	"mediguard/internal/platform/device"
	"mediguard/internal/platform/privacy"
	"mediguard/internal/platform/tracer"
	"mediguard/internal/verification/metrics"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/platform/sentinel"
	"mediguard/pkg/requestcontext"
)

// SessionStore persists verification sessions.
type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Session, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// AuditStore is the append-only audit trail.
type AuditStore interface {
	Append(ctx context.Context, record models.AuditRecord) error
	ListByProvider(ctx context.Context, providerID id.ProviderID, limit int) ([]models.AuditRecord, error)
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]models.AuditRecord, error)
}

// ProofVerifier checks a submitted proof against a session. A bad proof is
// (false, nil); an error means the check itself could not run.
type ProofVerifier interface {
	Verify(ctx context.Context, check models.ProofCheck) (bool, error)
}

// AuditPublisher fans appended records out to other consumers.
type AuditPublisher interface {
	Publish(ctx context.Context, record models.AuditRecord) error
}

const (
	defaultMaxAuditLimit = 100
	maxCreateAttempts    = 3
)

// Service is the server-side authority for verification sessions and the
// audit trail.
type Service struct {
	sessions        SessionStore
	audit           AuditStore
	verifier        ProofVerifier
	publisher       AuditPublisher
	metrics         *metrics.Metrics
	tracer          tracer.Tracer
	logger          *slog.Logger
	maxAuditLimit   int
	exposeRequestID bool
	newRequestID    func() id.RequestID
}

// Option configures the Service.
type Option func(*Service)

func WithPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAuditLimit caps the page size of ListAudit.
func WithMaxAuditLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAuditLimit = n
		}
	}
}

// WithRequestIDInAuditFeed controls whether ListAudit exposes request_id.
// Disabling it reproduces feeds that cannot correlate records to sessions.
func WithRequestIDInAuditFeed(expose bool) Option {
	return func(s *Service) { s.exposeRequestID = expose }
}

// WithRequestIDGenerator overrides request ID generation (tests only).
func WithRequestIDGenerator(gen func() id.RequestID) Option {
	return func(s *Service) {
		if gen != nil {
			s.newRequestID = gen
		}
	}
}

func New(sessions SessionStore, audit AuditStore, verifier ProofVerifier, opts ...Option) (*Service, error) {
	if sessions == nil || audit == nil || verifier == nil {
		return nil, errors.New("sessions, audit and verifier are required")
	}
	s := &Service{
		sessions:        sessions,
		audit:           audit,
		verifier:        verifier,
		tracer:          tracer.NewNoop(),
		logger:          slog.Default(),
		maxAuditLimit:   defaultMaxAuditLimit,
		exposeRequestID: true,
		newRequestID:    id.NewRequestID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CreateRequest assigns a fresh request ID, renders its code payload and
// persists the session.
func (s *Service) CreateRequest(ctx context.Context, req models.CreateRequest) (_ *models.Session, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCreateRequest,
		tracer.String(tracer.AttrProviderID, req.ProviderID.String()),
		tracer.String(tracer.AttrProviderType, req.ProviderType),
	)
	defer func() { span.End(err) }()

	if req.ProviderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "provider_id is required")
	}
	if err := req.Predicate.Validate(); err != nil {
		return nil, err
	}

	session := models.Session{
		ProviderID:             req.ProviderID,
		ProviderName:           strings.TrimSpace(req.ProviderName),
		ProviderType:           strings.TrimSpace(req.ProviderType),
		Predicate:              req.Predicate,
		PredicateHumanReadable: req.Predicate.HumanReadable(),
		CreatedAt:              requestcontext.Now(ctx),
	}

	for attempt := 1; ; attempt++ {
		session.RequestID = s.newRequestID()
		session.CodePayload = codescheme.EncodeVerify(session.RequestID)
		err = s.sessions.Save(ctx, session)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrConflict) || attempt >= maxCreateAttempts {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification session")
		}
		s.logger.WarnContext(ctx, "request id collision, regenerating",
			"request_id", session.RequestID.String(),
			"attempt", attempt,
		)
	}

	s.metrics.IncSessionCreated(session.ProviderType)
	s.logger.InfoContext(ctx, "verification session created",
		"request_id", session.RequestID.String(),
		"provider_id", session.ProviderID.String(),
		"predicate", session.PredicateHumanReadable,
	)
	return &session, nil
}

// GetRequest returns a session so the holder can see what it is asked to prove.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, requestID)
	if err != nil {
		return nil, translateStoreErr(err, "verification request not found", "failed to load verification request")
	}
	return session, nil
}

// SubmitProof checks a proof against its session and appends exactly one
// audit record for the attempt, whatever the outcome.
func (s *Service) SubmitProof(ctx context.Context, req models.SubmitProofRequest) (_ *models.SubmitProofResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmitProof,
		tracer.String(tracer.AttrRequestID, req.RequestID.String()),
	)
	defer func() { span.End(err) }()

	if strings.TrimSpace(req.Proof) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "proof is required")
	}

	session, err := s.GetRequest(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	verified, err := s.verifier.Verify(ctx, models.ProofCheck{
		Session:            *session,
		Proof:              req.Proof,
		RevealedAttributes: req.RevealedAttributes,
		IssuerPublicKey:    req.IssuerPublicKey,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "proof verification unavailable",
			"request_id", req.RequestID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeBackendUnavailable, "proof verification unavailable")
	}
	span.SetAttributes(tracer.Bool(tracer.AttrVerified, verified))
	s.logger.InfoContext(ctx, "proof checked",
		"request_id", req.RequestID.String(),
		"provider_id", session.ProviderID.String(),
		"verified", verified,
		"revealed", privacy.AttributeNames(req.RevealedAttributes),
	)

	record, err := s.RecordAudit(ctx, models.AuditRecord{
		ProviderID:             session.ProviderID,
		RequestID:              session.RequestID,
		Verified:               verified,
		PredicateHumanReadable: session.PredicateHumanReadable,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncProofSubmission(verified)
	return &models.SubmitProofResult{
		VerificationID: record.VerificationID,
		Verified:       record.Verified,
		Timestamp:      record.Timestamp,
	}, nil
}

// RecordAudit is the single write path into the audit trail. The caller
// supplies provider, optional request ID, outcome and predicate text; the
// verification ID, timestamp and device are assigned here.
func (s *Service) RecordAudit(ctx context.Context, in models.AuditRecord) (_ *models.AuditRecord, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRecordAudit,
		tracer.String(tracer.AttrProviderID, in.ProviderID.String()),
		tracer.Bool(tracer.AttrVerified, in.Verified),
	)
	defer func() { span.End(err) }()

	if in.ProviderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "provider_id is required")
	}
	if strings.TrimSpace(in.PredicateHumanReadable) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "predicate_human_readable is required")
	}

	record := models.AuditRecord{
		VerificationID:         id.NewVerificationID(),
		ProviderID:             in.ProviderID,
		RequestID:              in.RequestID,
		Verified:               in.Verified,
		PredicateHumanReadable: in.PredicateHumanReadable,
		Device:                 device.DisplayName(requestcontext.UserAgent(ctx)),
		Timestamp:              requestcontext.Now(ctx),
	}
	if err := s.audit.Append(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit record")
	}
	s.metrics.IncAuditAppended()
	span.AddEvent(tracer.EventAuditAppended)

	s.logger.InfoContext(ctx, "verification attempt recorded",
		"verification_id", record.VerificationID.String(),
		"provider_id", record.ProviderID.String(),
		"request_id", optionalID(record),
		"verified", record.Verified,
	)

	s.publish(ctx, record)
	return &record, nil
}

// ListAudit returns the provider's records newest first.
func (s *Service) ListAudit(ctx context.Context, providerID id.ProviderID, limit int) (_ []models.AuditRecord, err error) {
	start := time.Now()
	defer s.metrics.ObserveAuditList(start)

	if limit <= 0 || limit > s.maxAuditLimit {
		limit = s.maxAuditLimit
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanListAudit,
		tracer.String(tracer.AttrProviderID, providerID.String()),
		tracer.Int64(tracer.AttrLimit, int64(limit)),
	)
	defer func() { span.End(err) }()

	if providerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "provider_id is required")
	}

	records, err := s.audit.ListByProvider(ctx, providerID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit records")
	}
	if !s.exposeRequestID {
		for i := range records {
			records[i].RequestID = id.RequestID{}
		}
	}
	span.SetAttributes(tracer.Int64(tracer.AttrResultCount, int64(len(records))))
	return records, nil
}

// GetSessionStatus resolves a session's outcome from the records written for
// it. VERIFIED is sticky once any attempt succeeded; otherwise the session is
// FAILED after at least one failed attempt and PENDING before any.
func (s *Service) GetSessionStatus(ctx context.Context, requestID id.RequestID) (_ *models.SessionStatus, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionStatus,
		tracer.String(tracer.AttrRequestID, requestID.String()),
	)
	defer func() { span.End(err) }()

	records, err := s.audit.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session attempts")
	}

	status := &models.SessionStatus{RequestID: requestID, Status: models.StatusPending}
	if len(records) == 0 {
		// Sessions may be pruned while their attempts are kept, so only an
		// attempt-less unknown ID is a 404.
		if _, err := s.GetRequest(ctx, requestID); err != nil {
			return nil, err
		}
		return status, nil
	}

	status.Attempts = len(records)
	last := records[0].Timestamp
	status.LastAttemptAt = &last
	status.Status = models.StatusFailed
	for _, r := range records {
		if r.Verified {
			status.Status = models.StatusVerified
			break
		}
	}
	return status, nil
}

// PruneSessions deletes sessions created before cutoff. The audit trail is
// never pruned.
func (s *Service) PruneSessions(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.sessions.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prune verification sessions")
	}
	s.metrics.AddSessionsPruned(n)
	return n, nil
}

func (s *Service) publish(ctx context.Context, record models.AuditRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, record); err != nil {
		s.metrics.IncAuditPublishFailure()
		s.logger.WarnContext(ctx, "failed to publish audit record",
			"verification_id", record.VerificationID.String(),
			"error", err,
		)
	}
}

func translateStoreErr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

func optionalID(r models.AuditRecord) string {
	if !r.HasRequestID() {
		return ""
	}
	return r.RequestID.String()
}
