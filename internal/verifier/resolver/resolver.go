// Package resolver learns the outcome of a verification session by polling
// the provider's audit feed.
//
// A record carrying the session's request_id is matched exactly. Feeds that
// omit request_id fall back to a timestamp heuristic: only the newest record
// is considered, it must carry no request_id of its own, be verified, lie
// within the correlation window of now and not predate the session. A page
// with undecodable rows never settles by heuristic, since the skipped row may
// have been the newest. Failed attempts are counted but never end the wait;
// the holder may retry.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

// State is the verifier-side view of an active session.
type State string

const (
	StateWaiting   State = "WAITING"
	StateVerified  State = "VERIFIED"
	StateTimedOut  State = "TIMED_OUT"
	StateAbandoned State = "ABANDONED"
)

// Terminal reports whether polling stops in s.
func (s State) Terminal() bool {
	return s != StateWaiting
}

const (
	DefaultPollInterval      = 2 * time.Second
	DefaultCorrelationWindow = 5 * time.Second
	DefaultFeedLimit         = 20
)

// Feed is the audit listing the resolver polls.
type Feed interface {
	ListAuditPage(ctx context.Context, providerID id.ProviderID, limit int) (models.AuditPage, error)
}

// Observation is what one page of the audit feed says about a session.
type Observation struct {
	Verified bool
	// Record is the record that settled the session, when Verified.
	Record *models.AuditRecord
	// Exact is true when Record carries the session's request_id.
	Exact bool
	// Ambiguous marks a heuristic match made while other id-less records
	// were also inside the window.
	Ambiguous bool
	// FailedAttempts counts failed records attributable to the session.
	FailedAttempts int
	// Undecided is set when the heuristic was declined because the page
	// had rows that could not be read.
	Undecided bool
}

// Result is the resolver's state after a poll.
type Result struct {
	RequestID      id.RequestID
	State          State
	Record         *models.AuditRecord
	Exact          bool
	Ambiguous      bool
	FailedAttempts int
	Polls          int
}

// Evaluate classifies a newest-first page of the audit feed for session at
// time now. It is pure.
func Evaluate(session models.Session, page models.AuditPage, now time.Time, window time.Duration) Observation {
	var obs Observation
	records := page.Records
	exactSeen := false
	for i := range records {
		r := records[i]
		if r.RequestID != session.RequestID || !r.HasRequestID() {
			continue
		}
		exactSeen = true
		if r.Verified {
			if !obs.Verified {
				obs.Verified = true
				obs.Exact = true
				obs.Record = &r
			}
			continue
		}
		obs.FailedAttempts++
	}
	if exactSeen || (len(records) == 0 && page.Skipped == 0) {
		return obs
	}
	if page.Skipped > 0 {
		obs.Undecided = true
		return obs
	}

	newest := 0
	for i := range records {
		if records[i].Timestamp.After(records[newest].Timestamp) {
			newest = i
		}
	}
	candidate := records[newest]
	if candidate.HasRequestID() || !inWindow(candidate, session, now, window) {
		return obs
	}
	if !candidate.Verified {
		obs.FailedAttempts = 1
		return obs
	}

	obs.Verified = true
	obs.Record = &candidate
	for i := range records {
		if i != newest && !records[i].HasRequestID() && inWindow(records[i], session, now, window) {
			obs.Ambiguous = true
			break
		}
	}
	return obs
}

func inWindow(r models.AuditRecord, session models.Session, now time.Time, window time.Duration) bool {
	if r.Timestamp.Before(session.CreatedAt) {
		return false
	}
	age := now.Sub(r.Timestamp)
	if age < 0 {
		age = -age
	}
	return age <= window
}

// Resolver polls a Feed for one session at a time.
type Resolver struct {
	feed         Feed
	pollInterval time.Duration
	window       time.Duration
	timeout      time.Duration
	feedLimit    int
	now          func() time.Time
	logger       *slog.Logger
	metrics      *Metrics
}

// Option configures the Resolver.
type Option func(*Resolver)

func WithPollInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func WithCorrelationWindow(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithTimeout ends the wait as TIMED_OUT after d without a verdict. Zero
// waits forever.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

func WithFeedLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.feedLimit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func New(feed Feed, opts ...Option) *Resolver {
	r := &Resolver{
		feed:         feed,
		pollInterval: DefaultPollInterval,
		window:       DefaultCorrelationWindow,
		feedLimit:    DefaultFeedLimit,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Check fetches one page of the feed and evaluates it.
func (r *Resolver) Check(ctx context.Context, session models.Session) (Observation, error) {
	page, err := r.feed.ListAuditPage(ctx, session.ProviderID, r.feedLimit)
	if err != nil {
		r.metrics.observe("error")
		return Observation{}, err
	}
	obs := Evaluate(session, page, r.now(), r.window)
	switch {
	case obs.Verified:
		r.metrics.observe("verified")
	case obs.Undecided:
		r.metrics.observe("undecided")
		r.logger.WarnContext(ctx, "audit page had unreadable rows, time-window match skipped",
			"request_id", session.RequestID.String(),
			"skipped", page.Skipped,
		)
	default:
		r.metrics.observe("waiting")
	}
	if obs.Ambiguous {
		r.metrics.incAmbiguous()
		r.logger.WarnContext(ctx, "correlation ambiguous: several unattributed records in window",
			"request_id", session.RequestID.String(),
			"provider_id", session.ProviderID.String(),
			"verification_id", obs.Record.VerificationID.String(),
		)
	}
	return obs, nil
}

// Watch polls until the session is verified, the timeout passes or ctx is
// cancelled, which yields ABANDONED. onPoll, if set, sees every poll; feed
// errors are reported there and leave the state unchanged.
func (r *Resolver) Watch(ctx context.Context, session models.Session, onPoll func(Result, error)) Result {
	result := Result{RequestID: session.RequestID, State: StateWaiting}
	started := r.now()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		obs, err := r.Check(ctx, session)
		result.Polls++
		if err == nil {
			if obs.FailedAttempts > result.FailedAttempts {
				result.FailedAttempts = obs.FailedAttempts
			}
			if obs.Verified {
				result.State = StateVerified
				result.Record = obs.Record
				result.Exact = obs.Exact
				result.Ambiguous = obs.Ambiguous
			}
		} else if ctx.Err() != nil {
			result.State = StateAbandoned
			return result
		} else {
			r.logger.WarnContext(ctx, "audit feed poll failed",
				"request_id", session.RequestID.String(),
				"error", err,
			)
		}

		if result.State == StateWaiting && r.timeout > 0 && r.now().Sub(started) >= r.timeout {
			result.State = StateTimedOut
		}
		if onPoll != nil {
			onPoll(result, err)
		}
		if result.State.Terminal() {
			r.logger.InfoContext(ctx, "session resolved",
				"request_id", session.RequestID.String(),
				"state", string(result.State),
				"exact", result.Exact,
				"polls", result.Polls,
			)
			return result
		}

		select {
		case <-ctx.Done():
			result.State = StateAbandoned
			return result
		case <-ticker.C:
		}
	}
}
