package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/skip2/go-qrcode"

	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	"mediguard/internal/verifier/client"
	"mediguard/internal/verifier/resolver"
	id "mediguard/pkg/domain"
)

func (e *env) runCreate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	providerID := fs.String("provider-id", "demo-pharmacy", "Provider identifier")
	providerName := fs.String("provider-name", "Demo Pharmacy", "Provider display name")
	providerType := fs.String("provider-type", "pharmacy", "Provider category")
	catalogKey := fs.String("predicate", string(predicate.KeyAge18), "Catalog predicate: "+catalogList())
	noQR := fs.Bool("no-qr", false, "Do not render the QR code in the terminal")
	noWait := fs.Bool("no-wait", false, "Print the code and exit without polling")
	metricsFile := fs.String("metrics-file", "", "Write poll metrics in Prometheus text format to this file on exit")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	session, err := e.client.CreateRequest(ctx, client.CreateRequestInput{
		ProviderID:   id.ProviderID(*providerID),
		ProviderName: *providerName,
		ProviderType: *providerType,
		CatalogKey:   predicate.CatalogKey(*catalogKey),
	})
	if err != nil {
		return e.fail(err)
	}

	fmt.Fprintf(e.stdout, "Request:   %s\n", session.RequestID)
	fmt.Fprintf(e.stdout, "Predicate: %s\n", session.PredicateHumanReadable)
	fmt.Fprintf(e.stdout, "Code:      %s\n", session.CodePayload)
	fmt.Fprintf(e.stdout, "QR image:  %s\n", e.client.QRCodeURL(session.RequestID))
	if !*noQR {
		if err := printQR(e.stdout, session.CodePayload); err != nil {
			e.logger.Warn("render qr code", "error", err)
		}
	}
	if *noWait {
		return exitOK
	}

	reg := prometheus.NewRegistry()
	code := e.await(ctx, e.client, *session, resolver.NewMetrics(reg))
	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			e.logger.Warn("write metrics file", "path", *metricsFile, "error", err)
		}
	}
	return code
}

// await polls until the session settles and maps the outcome to an exit code.
func (e *env) await(ctx context.Context, feed resolver.Feed, session models.Session, metrics *resolver.Metrics) int {
	r := resolver.New(feed,
		resolver.WithPollInterval(e.cfg.PollInterval),
		resolver.WithCorrelationWindow(e.cfg.CorrelationWindow),
		resolver.WithTimeout(e.cfg.PollTimeout),
		resolver.WithLogger(e.logger),
		resolver.WithMetrics(metrics),
	)
	tracker := resolver.NewTracker(r)
	defer tracker.Abandon()

	fmt.Fprintln(e.stdout, "Waiting for the holder to scan... (Ctrl-C to stop)")
	lastFailed := 0
	done := tracker.Start(ctx, session, func(res resolver.Result, err error) {
		if err != nil {
			fmt.Fprintf(e.stderr, "  poll %d: backend unreachable, retrying (%v)\n", res.Polls, err)
			return
		}
		if res.FailedAttempts > lastFailed {
			lastFailed = res.FailedAttempts
			fmt.Fprintf(e.stdout, "  proof attempt failed (%d so far), still waiting\n", res.FailedAttempts)
		}
	})

	res := <-done
	switch res.State {
	case resolver.StateVerified:
		fmt.Fprintf(e.stdout, "VERIFIED: %s\n", session.PredicateHumanReadable)
		if res.Record != nil {
			fmt.Fprintf(e.stdout, "  at %s on %s\n", res.Record.Timestamp.Local().Format("15:04:05"), res.Record.Device)
		}
		if !res.Exact {
			fmt.Fprintln(e.stdout, "  matched by time window (no request id in the audit feed)")
		}
		if res.Ambiguous {
			fmt.Fprintln(e.stdout, "  warning: other verifications landed in the same window")
		}
		return exitOK
	case resolver.StateTimedOut:
		fmt.Fprintln(e.stdout, "TIMED OUT: no verification observed")
		return exitTimedOut
	default:
		fmt.Fprintln(e.stdout, "ABANDONED")
		return exitAbandoned
	}
}

func printQR(w io.Writer, payload string) error {
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, code.ToSmallString(false))
	return err
}

func catalogList() string {
	keys := predicate.CatalogKeys()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
