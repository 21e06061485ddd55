// Command wallet is the holder-side CLI: it stands in for the camera by taking
// scanned code payloads as arguments or stdin lines, keeps credentials in a
// local file, and answers verification requests.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mediguard/internal/platform/config"
	"mediguard/internal/platform/logger"
	"mediguard/internal/verifier/client"
	"mediguard/internal/wallet/prove"
	"mediguard/internal/wallet/scan"
	"mediguard/internal/wallet/store"
	"mediguard/pkg/platform/circuit"
)

const usage = `usage: wallet <command> [flags]

commands:
  scan <payload>...   handle scanned codes (or -stdin, one per line)
  list                list stored credentials
  show -id <id>       print one credential
  import -file <f>    import a JSON array of credential offers
  issue-demo          have the demo hospital issue a credential and import it

environment:
  MEDIGUARD_BACKEND_URL, WALLET_PATH, SCAN_COOLDOWN, LOG_LEVEL
`

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type env struct {
	cfg     config.Client
	client  *client.Client
	store   *store.Store
	scanner *scan.Scanner
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitUsage)
	}
	if cmd := os.Args[1]; cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Fprint(os.Stdout, usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	e, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wallet: %v\n", err)
		stop()
		os.Exit(exitError)
	}

	args := os.Args[2:]
	var code int
	switch os.Args[1] {
	case "scan":
		code = e.runScan(ctx, args)
	case "list":
		code = e.runList(ctx, args)
	case "show":
		code = e.runShow(ctx, args)
	case "import":
		code = e.runImport(ctx, args)
	case "issue-demo":
		code = e.runIssueDemo(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "wallet: unknown command %q\n\n%s", os.Args[1], usage)
		code = exitUsage
	}
	stop()
	os.Exit(code)
}

func setup(ctx context.Context) (*env, error) {
	cfg := config.ClientFromEnv()
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	c, err := client.New(cfg.BackendURL,
		client.WithTimeout(cfg.BackendTimeout),
		client.WithBreaker(circuit.New("wallet-backend")),
		client.WithUserAgent("mediguard-wallet/1.0"),
		client.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.NewFilePersistence(cfg.WalletPath), store.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open wallet %s: %w", cfg.WalletPath, err)
	}

	flow := prove.New(c, st, prove.WithLogger(log))
	scanner := scan.NewScanner(st, flow,
		scan.WithCooldown(cfg.ScanCooldown),
		scan.WithLogger(log),
	)

	return &env{
		cfg:     cfg,
		client:  c,
		store:   st,
		scanner: scanner,
		logger:  log,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}, nil
}

func (e *env) fail(err error) int {
	fmt.Fprintf(os.Stderr, "wallet: %v\n", err)
	return exitError
}
