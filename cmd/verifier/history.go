package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	id "mediguard/pkg/domain"
)

func (e *env) runStatus(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	requestID := fs.String("request-id", "", "Request ID to look up (required)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	rid, err := id.ParseRequestID(*requestID)
	if err != nil {
		fmt.Fprintf(fs.Output(), "invalid -request-id: %v\n", err)
		return exitUsage
	}

	status, err := e.client.GetSessionStatus(ctx, rid)
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "%s  %s  attempts=%d", status.RequestID, status.Status, status.Attempts)
	if status.LastAttemptAt != nil {
		fmt.Fprintf(e.stdout, "  last=%s", status.LastAttemptAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintln(e.stdout)
	return exitOK
}

type historyRow struct {
	VerificationID string    `json:"verification_id"`
	RequestID      string    `json:"request_id,omitempty"`
	Verified       bool      `json:"verified"`
	Predicate      string    `json:"predicate"`
	Device         string    `json:"device"`
	Timestamp      time.Time `json:"timestamp"`
}

func (e *env) runHistory(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	providerID := fs.String("provider-id", "demo-pharmacy", "Provider identifier")
	limit := fs.Int("limit", 20, "Maximum records to show")
	asJSON := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	records, err := e.client.ListAudit(ctx, id.ProviderID(*providerID), *limit)
	if err != nil {
		return e.fail(err)
	}

	rows := make([]historyRow, 0, len(records))
	for _, r := range records {
		row := historyRow{
			VerificationID: r.VerificationID.String(),
			Verified:       r.Verified,
			Predicate:      r.PredicateHumanReadable,
			Device:         r.Device,
			Timestamp:      r.Timestamp,
		}
		if !r.RequestID.IsNil() {
			row.RequestID = r.RequestID.String()
		}
		rows = append(rows, row)
	}

	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return e.fail(err)
		}
		return exitOK
	}

	if len(rows) == 0 {
		fmt.Fprintln(e.stdout, "No verifications yet.")
		return exitOK
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRESULT\tPREDICATE\tDEVICE\tREQUEST")
	for _, row := range rows {
		result := "failed"
		if row.Verified {
			result = "verified"
		}
		req := row.RequestID
		if req == "" {
			req = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.Timestamp.Local().Format("2006-01-02 15:04:05"), result, row.Predicate, row.Device, req)
	}
	if err := tw.Flush(); err != nil {
		return e.fail(err)
	}
	return exitOK
}
