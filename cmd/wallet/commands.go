package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"mediguard/internal/credential"
	issuerModels "mediguard/internal/issuer/models"
	"mediguard/internal/seeder"
	"mediguard/internal/wallet/scan"
	id "mediguard/pkg/domain"
)

func (e *env) runScan(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fromStdin := fs.Bool("stdin", false, "Read one scanned payload per line from stdin")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	frames := fs.Args()
	if *fromStdin {
		sc := bufio.NewScanner(e.stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				frames = append(frames, line)
			}
		}
		if err := sc.Err(); err != nil {
			return e.fail(err)
		}
	}
	if len(frames) == 0 {
		fmt.Fprintln(os.Stderr, "wallet: nothing to scan")
		return exitUsage
	}

	code := exitOK
	for _, frame := range frames {
		if ctx.Err() != nil {
			e.scanner.Stop()
		}
		out, err := e.scanner.HandleFrame(ctx, frame)
		if errors.Is(err, scan.ErrStopped) {
			return code
		}
		if !e.report(out) {
			code = exitError
		}
	}
	return code
}

// report prints one outcome and says whether it succeeded.
func (e *env) report(out scan.Outcome) bool {
	if out.Ignored {
		fmt.Fprintln(e.stdout, "ignored: scanner cooling down")
		return true
	}
	switch a := out.Action.(type) {
	case scan.Reject:
		fmt.Fprintf(e.stdout, "rejected: %s (%s)\n", a.Reason, a.Code)
		return false
	case scan.OfferCredentialImport:
		if out.Err != nil {
			fmt.Fprintf(e.stdout, "import failed: %v\n", out.Err)
			return false
		}
		if out.Import.Added {
			fmt.Fprintf(e.stdout, "imported %s credential %s\n", out.Import.Credential.Type, out.Import.Credential.ID)
		} else {
			fmt.Fprintf(e.stdout, "already in wallet: %s\n", out.Import.Credential.ID)
		}
		return true
	case scan.NavigateToProofFlow:
		if out.Err != nil {
			fmt.Fprintf(e.stdout, "proof for %s failed: %v\n", a.RequestID, out.Err)
			return false
		}
		p := out.Proof
		verdict := "NOT VERIFIED"
		if p.Verified {
			verdict = "VERIFIED"
		}
		fmt.Fprintf(e.stdout, "%s: %s for %s (credential %s)\n",
			verdict, p.Session.PredicateHumanReadable, p.Session.ProviderName, p.Credential.ID)
		return p.Verified
	default:
		return false
	}
}

func (e *env) runList(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	creds := e.store.List(ctx)
	if *asJSON {
		return e.writeJSON(creds)
	}
	if len(creds) == 0 {
		fmt.Fprintf(e.stdout, "No credentials in %s\n", e.cfg.WalletPath)
		return exitOK
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tISSUER\tIMPORTED\tATTRIBUTES")
	for _, c := range creds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Type, c.Issuer, c.IssuedAt.Local().Format("2006-01-02 15:04"), formatAttributes(c.Attributes))
	}
	if err := tw.Flush(); err != nil {
		return e.fail(err)
	}
	return exitOK
}

func (e *env) runShow(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	credID := fs.String("id", "", "Credential ID (required)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *credID == "" {
		fmt.Fprintln(fs.Output(), "-id is required")
		return exitUsage
	}
	c, err := e.store.Get(ctx, *credID)
	if err != nil {
		return e.fail(err)
	}
	return e.writeJSON(c)
}

func (e *env) runImport(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "JSON array of credential offers (required)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *file == "" {
		fmt.Fprintln(fs.Output(), "-file is required")
		return exitUsage
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return e.fail(err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return e.fail(fmt.Errorf("%s: expected a JSON array: %w", *file, err))
	}

	code := exitOK
	creds := make([]credential.Credential, 0, len(raw))
	for i, item := range raw {
		c, err := credential.ParseOffer(item)
		if err != nil {
			fmt.Fprintf(e.stdout, "#%d: %v\n", i, err)
			code = exitError
			continue
		}
		creds = append(creds, c)
	}

	added := 0
	for _, item := range e.store.ImportBatch(ctx, creds) {
		switch {
		case item.Err != nil:
			fmt.Fprintf(e.stdout, "#%d: %v\n", item.Index, item.Err)
			code = exitError
		case item.Result.Added:
			added++
		}
	}
	fmt.Fprintf(e.stdout, "imported %d of %d credentials\n", added, len(raw))
	return code
}

type attrFlag map[string]string

func (a attrFlag) String() string { return formatAttributes(a) }

func (a attrFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("attribute must be key=value, got %q", v)
	}
	a[strings.TrimSpace(k)] = strings.TrimSpace(val)
	return nil
}

func (e *env) runIssueDemo(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("issue-demo", flag.ContinueOnError)
	credType := fs.String("type", "vaccination", "Credential type")
	issuer := fs.String("issuer", string(seeder.DemoIssuerID), "Issuing hospital ID")
	attrs := attrFlag{}
	fs.Var(attrs, "attr", "Attribute key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if len(attrs) == 0 {
		attrs = defaultDemoAttributes(*credType)
	}

	issued, err := e.client.IssueCredential(ctx, issuerModels.IssueRequest{
		IssuerID:       id.IssuerID(*issuer),
		CredentialType: *credType,
		Attributes:     attrs,
	})
	if err != nil {
		return e.fail(err)
	}
	fmt.Fprintf(e.stdout, "issued %s by %s\n", issued.CredentialID, issued.IssuerID)

	// The offer goes through the same path as a scanned code.
	out, err := e.scanner.HandleFrame(ctx, issued.CredentialOffer)
	if err != nil {
		return e.fail(err)
	}
	if !e.report(out) {
		return exitError
	}
	return exitOK
}

func defaultDemoAttributes(credType string) map[string]string {
	switch credType {
	case "insurance":
		return map[string]string{"insurance_status": "active", "insurer": "Star Health"}
	case "identity":
		return map[string]string{"age": "34", "name": "Demo Holder"}
	default:
		return map[string]string{"vaccination_type": "COVID-19", "dose": "2", "age": "34"}
	}
}

func formatAttributes(attrs map[string]string) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}

func (e *env) writeJSON(v any) int {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return e.fail(err)
	}
	return exitOK
}
