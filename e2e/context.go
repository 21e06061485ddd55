package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"mediguard/internal/verification/models"
	"mediguard/internal/verifier/client"
	"mediguard/internal/verifier/resolver"
	"mediguard/internal/wallet/scan"
	"mediguard/internal/wallet/store"
)

// scanCooldown is the wallet cooldown; scenarios move the scanner's clock
// past it explicitly.
const scanCooldown = 1500 * time.Millisecond

// TestContext holds state between test steps
type TestContext struct {
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	backend *backend
	Client  *client.Client
	Wallet  *store.Store
	Scanner *scan.Scanner
	clock   *scanClock

	Session     *models.Session
	LastErr     error
	Offer       string
	LastOutcome scan.Outcome
	Resolution  resolver.Result

	savedEnv map[string]*string
}

// NewTestContext creates a new test context
func NewTestContext() *TestContext {
	return &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		savedEnv:   make(map[string]*string),
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.Close()
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.Client = nil
	tc.Wallet = nil
	tc.Scanner = nil
	tc.clock = nil
	tc.Session = nil
	tc.LastErr = nil
	tc.Offer = ""
	tc.LastOutcome = scan.Outcome{}
	tc.Resolution = resolver.Result{}
}

// Close stops the backend and restores any environment the scenario set.
func (tc *TestContext) Close() {
	if tc.backend != nil {
		tc.backend.Close()
		tc.backend = nil
	}
	for k, v := range tc.savedEnv {
		if v == nil {
			_ = os.Unsetenv(k)
		} else {
			_ = os.Setenv(k, *v)
		}
	}
	clear(tc.savedEnv)
}

// Setenv sets an environment variable for the rest of the scenario.
func (tc *TestContext) Setenv(key, value string) error {
	if _, saved := tc.savedEnv[key]; !saved {
		if prev, ok := os.LookupEnv(key); ok {
			tc.savedEnv[key] = &prev
		} else {
			tc.savedEnv[key] = nil
		}
	}
	return os.Setenv(key, value)
}

// GET makes a GET request against the backend and stores the response
func (tc *TestContext) GET(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

// scanClock is the wallet scanner's clock. Only steps move it.
type scanClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *scanClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *scanClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
