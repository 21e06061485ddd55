package resolver

import (
	"context"
	"sync"

	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

// Tracker holds the single active session of a verifier instance. Starting
// a new session abandons the previous one locally; the backend is never told.
type Tracker struct {
	resolver *Resolver

	mu     sync.Mutex
	active *watch
}

type watch struct {
	requestID id.RequestID
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewTracker(resolver *Resolver) *Tracker {
	return &Tracker{resolver: resolver}
}

// Start abandons any active session and begins watching session. The
// returned channel receives exactly one final Result.
func (t *Tracker) Start(ctx context.Context, session models.Session, onPoll func(Result, error)) <-chan Result {
	ctx, cancel := context.WithCancel(ctx)
	w := &watch{requestID: session.RequestID, cancel: cancel, done: make(chan struct{})}
	out := make(chan Result, 1)

	// Swap first so concurrent Starts each displace exactly one watch.
	t.mu.Lock()
	prev := t.active
	t.active = w
	t.mu.Unlock()
	prev.stop()

	go func() {
		defer close(w.done)
		defer cancel()
		res := t.resolver.Watch(ctx, session, onPoll)

		t.mu.Lock()
		if t.active == w {
			t.active = nil
		}
		t.mu.Unlock()
		out <- res
	}()
	return out
}

// Abandon stops polling the active session, if any, and waits for the
// poller to exit.
func (t *Tracker) Abandon() {
	t.mu.Lock()
	w := t.active
	t.active = nil
	t.mu.Unlock()
	w.stop()
}

// stop cancels the watch and waits for its poller. Nil is a no-op.
func (w *watch) stop() {
	if w == nil {
		return
	}
	w.cancel()
	<-w.done
}

// Active returns the request ID being watched.
func (t *Tracker) Active() (id.RequestID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return id.RequestID{}, false
	}
	return t.active.requestID, true
}
