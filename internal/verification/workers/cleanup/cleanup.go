package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPruner removes sessions created before a cutoff. The audit trail is
// not touched.
type SessionPruner interface {
	PruneSessions(ctx context.Context, cutoff time.Time) (int, error)
}

// CleanupResult summarizes the deletions performed by a cleanup run.
type CleanupResult struct {
	Cutoff          time.Time
	DeletedSessions int
}

// CleanupService periodically enforces session retention.
type CleanupService struct {
	pruner    SessionPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now (tests only).
func WithClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a CleanupService. Retention must be positive; callers skip
// the worker entirely when sessions are kept forever.
func New(pruner SessionPruner, retention time.Duration, opts ...CleanupOption) (*CleanupService, error) {
	if pruner == nil {
		return nil, fmt.Errorf("pruner is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	svc := &CleanupService{
		pruner:    pruner,
		retention: retention,
		interval:  5 * time.Minute,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
				continue
			}
			if res.DeletedSessions > 0 {
				s.logger.InfoContext(ctx, "pruned verification sessions",
					"deleted", res.DeletedSessions,
					"cutoff", res.Cutoff,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce deletes sessions older than the retention window.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	res := CleanupResult{Cutoff: s.now().Add(-s.retention)}
	deleted, err := s.pruner.PruneSessions(ctx, res.Cutoff)
	if err != nil {
		return res, fmt.Errorf("prune verification sessions: %w", err)
	}
	res.DeletedSessions = deleted
	return res, nil
}
