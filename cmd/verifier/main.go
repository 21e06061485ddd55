// Command verifier is the provider-side CLI: it opens verification sessions,
// shows their QR code, and watches the audit trail until the holder proves.
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
	"mediguard/pkg/platform/circuit"
)

const usage = `usage: verifier <command> [flags]

commands:
  create    open a verification session and wait for the holder
  status    print the backend's status for a request
  history   list recent verifications for a provider

environment:
  MEDIGUARD_BACKEND_URL, POLL_INTERVAL, CORRELATION_WINDOW, POLL_TIMEOUT, LOG_LEVEL
`

// Exit codes let scripts tell outcomes apart.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitTimedOut  = 3
	exitAbandoned = 130
)

type env struct {
	cfg    config.Client
	client *client.Client
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitUsage)
	}

	cfg := config.ClientFromEnv()
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	c, err := client.New(cfg.BackendURL,
		client.WithTimeout(cfg.BackendTimeout),
		client.WithBreaker(circuit.New("verifier-backend")),
		client.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verifier: %v\n", err)
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, client: c, logger: log, stdout: os.Stdout, stderr: os.Stderr}
	args := os.Args[2:]

	var code int
	switch os.Args[1] {
	case "create":
		code = e.runCreate(ctx, args)
	case "status":
		code = e.runStatus(ctx, args)
	case "history":
		code = e.runHistory(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "verifier: unknown command %q\n\n%s", os.Args[1], usage)
		code = exitUsage
	}
	stop()
	os.Exit(code)
}

func (e *env) fail(err error) int {
	fmt.Fprintf(e.stderr, "verifier: %v\n", err)
	return exitError
}
