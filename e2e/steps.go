package e2e

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"

	"mediguard/internal/codescheme"
	issuerModels "mediguard/internal/issuer/models"
	"mediguard/internal/predicate"
	"mediguard/internal/seeder"
	"mediguard/internal/verifier/client"
	"mediguard/internal/verifier/resolver"
	"mediguard/internal/wallet/prove"
	"mediguard/internal/wallet/scan"
	"mediguard/internal/wallet/store"
	id "mediguard/pkg/domain"
	dErrors "mediguard/pkg/domain-errors"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the MediGuard backend is running$`, tc.backendIsRunning)
	ctx.Step(`^the MediGuard backend is running with "([^"]*)" set to "([^"]*)"$`, tc.backendIsRunningWith)

	// Verifier steps
	ctx.Step(`^the verifier creates a request for "([^"]*)" as provider "([^"]*)"$`, tc.createRequest)
	ctx.Step(`^the verifier watches the session$`, tc.watchSession)

	// Holder steps
	ctx.Step(`^the demo hospital has issued a "([^"]*)" credential with "([^"]*)" = "([^"]*)"$`, tc.issueCredential)
	ctx.Step(`^the holder holds a "([^"]*)" credential with "([^"]*)" = "([^"]*)"$`, tc.holderHolds)
	ctx.Step(`^the holder scans "([^"]*)"$`, tc.scanRaw)
	ctx.Step(`^the holder scans the credential offer(?: again)?$`, tc.scanOffer)
	ctx.Step(`^the holder scans the request code$`, tc.scanRequestCode)
	ctx.Step(`^the scan cooldown elapses$`, tc.cooldownElapses)

	// Assertion steps
	ctx.Step(`^the request predicate reads "([^"]*)"$`, tc.predicateReads)
	ctx.Step(`^the request code decodes to a verify intent for that request$`, tc.codeDecodesToRequest)
	ctx.Step(`^the QR image for the request is served as "([^"]*)"$`, tc.qrServedAs)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.requestFailsWith)
	ctx.Step(`^the scan is rejected with "([^"]*)"$`, tc.scanRejectedWith)
	ctx.Step(`^the scan is ignored while cooling down$`, tc.scanIgnored)
	ctx.Step(`^the scanner is armed again$`, tc.scannerArmed)
	ctx.Step(`^the import reports added "(true|false)"$`, tc.importAdded)
	ctx.Step(`^the wallet holds (\d+) credentials?$`, tc.walletHolds)
	ctx.Step(`^the proof is (verified|rejected)$`, tc.proofIs)
	ctx.Step(`^the session resolves as "([^"]*)"$`, tc.sessionResolvesAs)
	ctx.Step(`^the match is (exact|by time window)$`, tc.matchIs)
	ctx.Step(`^the verifier saw (\d+) failed attempts?$`, tc.failedAttempts)
}

func (tc *TestContext) backendIsRunning(ctx context.Context) error {
	log := discardLogger()
	b, err := startBackend(ctx, log)
	if err != nil {
		return err
	}
	tc.backend = b

	tc.Client, err = client.New(b.URL(), client.WithLogger(log), client.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}
	tc.Wallet, err = store.Open(ctx, store.NewMemoryPersistence(), store.WithLogger(log))
	if err != nil {
		return err
	}
	tc.clock = &scanClock{t: time.Now()}
	tc.Scanner = scan.NewScanner(tc.Wallet, prove.New(tc.Client, tc.Wallet, prove.WithLogger(log)),
		scan.WithCooldown(scanCooldown),
		scan.WithClock(tc.clock.now),
		scan.WithLogger(log),
	)
	return nil
}

func (tc *TestContext) backendIsRunningWith(ctx context.Context, key, value string) error {
	if err := tc.Setenv(key, value); err != nil {
		return err
	}
	return tc.backendIsRunning(ctx)
}

func (tc *TestContext) createRequest(ctx context.Context, catalogKey, providerID string) error {
	tc.Session, tc.LastErr = tc.Client.CreateRequest(ctx, client.CreateRequestInput{
		ProviderID:   id.ProviderID(providerID),
		ProviderName: "Apollo Pharmacy",
		ProviderType: "pharmacy",
		CatalogKey:   predicate.CatalogKey(catalogKey),
	})
	return nil
}

func (tc *TestContext) requireSession() error {
	if tc.LastErr != nil {
		return fmt.Errorf("creating the request failed: %w", tc.LastErr)
	}
	if tc.Session == nil {
		return errors.New("no request was created")
	}
	return nil
}

func (tc *TestContext) watchSession(ctx context.Context) error {
	if err := tc.requireSession(); err != nil {
		return err
	}
	r := resolver.New(tc.Client,
		resolver.WithPollInterval(20*time.Millisecond),
		resolver.WithTimeout(time.Second),
		resolver.WithLogger(discardLogger()),
	)
	tc.Resolution = r.Watch(ctx, *tc.Session, nil)
	return nil
}

func (tc *TestContext) issueCredential(ctx context.Context, credType, attr, value string) error {
	issued, err := tc.Client.IssueCredential(ctx, issuerModels.IssueRequest{
		IssuerID:       seeder.DemoIssuerID,
		CredentialType: credType,
		Attributes:     map[string]string{attr: value},
	})
	if err != nil {
		return fmt.Errorf("issue credential: %w", err)
	}
	tc.Offer = issued.CredentialOffer
	return nil
}

func (tc *TestContext) holderHolds(ctx context.Context, credType, attr, value string) error {
	if err := tc.issueCredential(ctx, credType, attr, value); err != nil {
		return err
	}
	if err := tc.scanOffer(ctx); err != nil {
		return err
	}
	if err := tc.importAdded(ctx, "true"); err != nil {
		return err
	}
	return tc.cooldownElapses(ctx)
}

func (tc *TestContext) scanRaw(ctx context.Context, raw string) error {
	out, err := tc.Scanner.HandleFrame(ctx, raw)
	if err != nil {
		return err
	}
	tc.LastOutcome = out
	return nil
}

func (tc *TestContext) scanOffer(ctx context.Context) error {
	if tc.Offer == "" {
		return errors.New("no credential offer was issued")
	}
	return tc.scanRaw(ctx, tc.Offer)
}

func (tc *TestContext) scanRequestCode(ctx context.Context) error {
	if err := tc.requireSession(); err != nil {
		return err
	}
	return tc.scanRaw(ctx, tc.Session.CodePayload)
}

func (tc *TestContext) cooldownElapses(ctx context.Context) error {
	tc.clock.advance(scanCooldown + time.Millisecond)
	return nil
}

func (tc *TestContext) predicateReads(ctx context.Context, want string) error {
	if err := tc.requireSession(); err != nil {
		return err
	}
	if tc.Session.PredicateHumanReadable != want {
		return fmt.Errorf("expected predicate %q but got %q", want, tc.Session.PredicateHumanReadable)
	}
	return nil
}

func (tc *TestContext) codeDecodesToRequest(ctx context.Context) error {
	if err := tc.requireSession(); err != nil {
		return err
	}
	intent, err := codescheme.Decode(tc.Session.CodePayload)
	if err != nil {
		return fmt.Errorf("decode %q: %w", tc.Session.CodePayload, err)
	}
	submit, ok := intent.(codescheme.SubmitProof)
	if !ok {
		return fmt.Errorf("expected a verify intent but got %T", intent)
	}
	if submit.RequestID != tc.Session.RequestID {
		return fmt.Errorf("code carries request %s, session is %s", submit.RequestID, tc.Session.RequestID)
	}
	return nil
}

func (tc *TestContext) qrServedAs(ctx context.Context, contentType string) error {
	if err := tc.requireSession(); err != nil {
		return err
	}
	if err := tc.GET(ctx, tc.Client.QRCodeURL(tc.Session.RequestID)); err != nil {
		return err
	}
	if tc.LastResponse.StatusCode != 200 {
		return fmt.Errorf("expected status 200 but got %d", tc.LastResponse.StatusCode)
	}
	if got := tc.LastResponse.Header.Get("Content-Type"); got != contentType {
		return fmt.Errorf("expected content type %q but got %q", contentType, got)
	}
	return nil
}

func (tc *TestContext) requestFailsWith(ctx context.Context, code string) error {
	if tc.LastErr == nil {
		return errors.New("expected the request to fail")
	}
	if !dErrors.HasCode(tc.LastErr, dErrors.Code(code)) {
		return fmt.Errorf("expected error code %s but got %v", code, tc.LastErr)
	}
	return nil
}

func (tc *TestContext) scanRejectedWith(ctx context.Context, code string) error {
	reject, ok := tc.LastOutcome.Action.(scan.Reject)
	if !ok {
		return fmt.Errorf("expected the scan to be rejected but got %T", tc.LastOutcome.Action)
	}
	if reject.Code != dErrors.Code(code) {
		return fmt.Errorf("expected rejection %s but got %s", code, reject.Code)
	}
	return nil
}

func (tc *TestContext) scanIgnored(ctx context.Context) error {
	if !tc.LastOutcome.Ignored {
		return fmt.Errorf("expected the scan to be ignored but got %T", tc.LastOutcome.Action)
	}
	return nil
}

func (tc *TestContext) scannerArmed(ctx context.Context) error {
	if state := tc.Scanner.State(); state != scan.StateScanning {
		return fmt.Errorf("expected the scanner to be scanning but it is %s", state)
	}
	return nil
}

func (tc *TestContext) importAdded(ctx context.Context, want string) error {
	out := tc.LastOutcome
	if out.Err != nil {
		return fmt.Errorf("import failed: %w", out.Err)
	}
	if out.Import == nil {
		return fmt.Errorf("expected an import but got %T (ignored=%t)", out.Action, out.Ignored)
	}
	if got := strconv.FormatBool(out.Import.Added); got != want {
		return fmt.Errorf("expected added=%s but got added=%s", want, got)
	}
	return nil
}

func (tc *TestContext) walletHolds(ctx context.Context, n int) error {
	if got := len(tc.Wallet.List(ctx)); got != n {
		return fmt.Errorf("expected %d credentials in the wallet but found %d", n, got)
	}
	return nil
}

func (tc *TestContext) proofIs(ctx context.Context, want string) error {
	out := tc.LastOutcome
	if out.Err != nil {
		return fmt.Errorf("proof flow failed: %w", out.Err)
	}
	if out.Proof == nil {
		return fmt.Errorf("expected a proof submission but got %T", out.Action)
	}
	if got := out.Proof.Verified; got != (want == "verified") {
		return fmt.Errorf("expected the proof to be %s but verified=%t", want, got)
	}
	return nil
}

func (tc *TestContext) sessionResolvesAs(ctx context.Context, state string) error {
	if got := tc.Resolution.State; got != resolver.State(state) {
		return fmt.Errorf("expected the session to resolve as %s but got %s", state, got)
	}
	return nil
}

func (tc *TestContext) matchIs(ctx context.Context, kind string) error {
	if got := tc.Resolution.Exact; got != (kind == "exact") {
		return fmt.Errorf("expected the match to be %s but exact=%t", kind, got)
	}
	return nil
}

func (tc *TestContext) failedAttempts(ctx context.Context, n int) error {
	if got := tc.Resolution.FailedAttempts; got != n {
		return fmt.Errorf("expected %d failed attempts but saw %d", n, got)
	}
	return nil
}
