package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"mediguard/internal/codescheme"
	"mediguard/internal/credential"
	"mediguard/internal/issuer/models"
	"mediguard/internal/issuer/signing"
	"mediguard/internal/platform/tracer"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
	"mediguard/pkg/platform/sentinel"
	"mediguard/pkg/platform/validation"
	"mediguard/pkg/requestcontext"
)

// Store persists issuer registrations.
type Store interface {
	Save(ctx context.Context, issuer models.Issuer) error
	FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error)
	FindByPublicKey(ctx context.Context, publicKey string) (*models.Issuer, error)
}

// Service registers issuers and signs credentials on their behalf.
type Service struct {
	store     Store
	masterKey []byte
	logger    *slog.Logger
	tracer    tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(store Store, masterKey []byte, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if len(masterKey) < signing.MinMasterKeyLength {
		return nil, errors.New("issuer master key is too short")
	}
	s := &Service{
		store:     store,
		masterKey: masterKey,
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Init registers an issuer, deriving its key pair. It is idempotent: an
// existing registration is returned unchanged.
func (s *Service) Init(ctx context.Context, issuerID id.IssuerID, name string) (*models.Issuer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "hospital_name is required")
	}

	existing, err := s.store.FindByID(ctx, issuerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer")
	}

	key, err := signing.DeriveKey(s.masterKey, issuerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive issuer key")
	}
	issuer := models.Issuer{
		ID:        issuerID,
		Name:      name,
		PublicKey: signing.EncodePublicKey(key.Public().(ed25519.PublicKey)),
		CreatedAt: requestcontext.Now(ctx),
	}

	if err := s.store.Save(ctx, issuer); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a concurrent Init for the same issuer.
			return s.loadIssuer(ctx, issuerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register issuer")
	}

	s.logger.InfoContext(ctx, "issuer registered",
		"issuer_id", issuerID.String(),
		"public_key", issuer.PublicKey,
	)
	return &issuer, nil
}

// PublicKey returns the encoded verification key of a registered issuer.
func (s *Service) PublicKey(ctx context.Context, issuerID id.IssuerID) (string, error) {
	issuer, err := s.loadIssuer(ctx, issuerID)
	if err != nil {
		return "", err
	}
	return issuer.PublicKey, nil
}

// IssuerForKey resolves a public key to its registered issuer.
func (s *Service) IssuerForKey(ctx context.Context, publicKey string) (*models.Issuer, error) {
	issuer, err := s.store.FindByPublicKey(ctx, publicKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown issuer key")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve issuer key")
	}
	return issuer, nil
}

// Issue signs the attributes and renders the offer code a wallet imports.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (_ *models.IssuedCredential, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrIssuerID, req.IssuerID.String()),
		tracer.String(tracer.AttrCredType, req.CredentialType),
	)
	defer func() { span.End(err) }()

	credType := strings.TrimSpace(req.CredentialType)
	if credType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential_type is required")
	}
	if len(req.Attributes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "attributes are required")
	}
	if err := validation.CheckAttributes("attributes", req.Attributes); err != nil {
		return nil, err
	}
	for _, reserved := range []string{"id", "type", "iss", "sig", "issuedAt"} {
		if _, ok := req.Attributes[reserved]; ok {
			return nil, dErrors.New(dErrors.CodeValidation, "attribute name "+reserved+" is reserved")
		}
	}

	issuer, err := s.loadIssuer(ctx, req.IssuerID)
	if err != nil {
		return nil, err
	}
	key, err := signing.DeriveKey(s.masterKey, issuer.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive issuer key")
	}

	now := requestcontext.Now(ctx)
	credentialID := "cred-" + uuid.NewString()
	sig, err := signing.Sign(key, issuer.ID, credentialID, credType, req.Attributes, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign credential")
	}

	offer, err := codescheme.EncodeCredentialOffer(credential.Credential{
		ID:         credentialID,
		Type:       credType,
		Issuer:     issuer.ID.String(),
		Signature:  sig,
		Attributes: req.Attributes,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "credential issued",
		"issuer_id", issuer.ID.String(),
		"credential_id", credentialID,
		"credential_type", credType,
	)

	return &models.IssuedCredential{
		CredentialID:    credentialID,
		CredentialType:  credType,
		IssuerID:        issuer.ID,
		Signature:       sig,
		IssuerPublicKey: issuer.PublicKey,
		Attributes:      req.Attributes,
		CredentialOffer: offer,
		IssuedAt:        now,
	}, nil
}

func (s *Service) loadIssuer(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	issuer, err := s.store.FindByID(ctx, issuerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "hospital not initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer")
	}
	return issuer, nil
}
