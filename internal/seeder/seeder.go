package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	issuerModels "mediguard/internal/issuer/models"
	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
	"mediguard/pkg/requestcontext"
)

// DemoIssuerID is the hospital wallets ask for credentials in demo mode.
const DemoIssuerID id.IssuerID = "demo_issuer"

// DemoProviderID owns the seeded audit history.
const DemoProviderID id.ProviderID = "demo-pharmacy"

// IssuerRegistrar registers issuers.
type IssuerRegistrar interface {
	Init(ctx context.Context, issuerID id.IssuerID, name string) (*issuerModels.Issuer, error)
}

// AuditRecorder writes to the audit trail.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, in models.AuditRecord) (*models.AuditRecord, error)
}

// Seeder populates stores with demo data
type Seeder struct {
	issuers IssuerRegistrar
	audit   AuditRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a new seeder. audit may be nil to skip the demo history.
func New(issuers IssuerRegistrar, audit AuditRecorder, logger *slog.Logger) *Seeder {
	return &Seeder{
		issuers: issuers,
		audit:   audit,
		logger:  logger,
		now:     time.Now,
	}
}

// SeedIssuer registers the demo hospital. Safe to call on every start.
func (s *Seeder) SeedIssuer(ctx context.Context) error {
	issuer, err := s.issuers.Init(ctx, DemoIssuerID, "Demo Hospital")
	if err != nil {
		return fmt.Errorf("failed to seed demo issuer: %w", err)
	}
	s.logger.InfoContext(ctx, "demo issuer ready",
		"issuer_id", issuer.ID.String(),
		"public_key", issuer.PublicKey,
	)
	return nil
}

// SeedAll seeds the demo issuer and a short audit history for the demo
// provider. The history is appended on every call, so it belongs only in
// throwaway environments.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.InfoContext(ctx, "seeding demo data...")

	if err := s.SeedIssuer(ctx); err != nil {
		return err
	}
	if s.audit == nil {
		return nil
	}

	n, err := s.seedAuditHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed audit history: %w", err)
	}

	s.logger.InfoContext(ctx, "demo data seeded successfully",
		"audit_records", n,
	)
	return nil
}

func (s *Seeder) seedAuditHistory(ctx context.Context) (int, error) {
	now := s.now()

	history := []struct {
		key      predicate.CatalogKey
		verified bool
		device   string
		offset   time.Duration
	}{
		{predicate.KeyAge18, true, "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Mobile Safari/537.36", -3 * time.Hour},
		{predicate.KeyAge18, false, "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1", -2 * time.Hour},
		{predicate.KeyVaccinationCovid, true, "mediguard-wallet/1.0", -90 * time.Minute},
		{predicate.KeyInsuranceActive, true, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36", -30 * time.Minute},
	}

	for i, h := range history {
		p, err := predicate.FromCatalogKey(string(h.key))
		if err != nil {
			return i, err
		}
		recCtx := requestcontext.WithTime(ctx, now.Add(h.offset))
		recCtx = requestcontext.WithClientMetadata(recCtx, "", h.device)
		if _, err := s.audit.RecordAudit(recCtx, models.AuditRecord{
			ProviderID:             DemoProviderID,
			Verified:               h.verified,
			PredicateHumanReadable: p.HumanReadable(),
		}); err != nil {
			return i, err
		}
	}
	return len(history), nil
}
