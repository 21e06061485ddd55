package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediguard/internal/codescheme"
	"mediguard/internal/wallet/scan"
	"mediguard/internal/wallet/store"
	"mediguard/pkg/testutil"
)

func newTestEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(context.Background(), store.NewMemoryPersistence(), store.WithLogger(log))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &env{
		store:   st,
		scanner: scan.NewScanner(st, nil, scan.WithCooldown(time.Hour), scan.WithLogger(log)),
		logger:  log,
		stdin:   strings.NewReader(""),
		stdout:  out,
	}, out
}

func TestScanImportsOfferThenCoolsDown(t *testing.T) {
	e, out := newTestEnv(t)
	offer, err := codescheme.EncodeCredentialOffer(testutil.NewCredential(1))
	require.NoError(t, err)

	code := e.runScan(context.Background(), []string{offer, offer})

	assert.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "imported vaccination credential cred-1")
	assert.Contains(t, out.String(), "ignored: scanner cooling down")
	assert.Len(t, e.store.List(context.Background()), 1)
}

func TestScanRejectsForeignCode(t *testing.T) {
	e, out := newTestEnv(t)

	code := e.runScan(context.Background(), []string{"https://example.com"})

	assert.Equal(t, exitError, code)
	assert.Contains(t, out.String(), "rejected:")
	assert.Empty(t, e.store.List(context.Background()))
}

func TestScanFromStdin(t *testing.T) {
	e, out := newTestEnv(t)
	offer, err := codescheme.EncodeCredentialOffer(testutil.NewCredential(2))
	require.NoError(t, err)
	e.stdin = strings.NewReader("\n" + offer + "\n")

	code := e.runScan(context.Background(), []string{"-stdin"})

	assert.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "cred-2")
}

func TestImportReportsBadItemsAndKeepsGoodOnes(t *testing.T) {
	e, out := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "offers.json")
	body := `[
		{"id":"a","type":"vaccination","iss":"demo_issuer","sig":"s1","vaccination_type":"COVID-19"},
		{"id":"b","type":"vaccination","iss":"demo_issuer"},
		{"id":"c","type":"insurance","iss":"demo_issuer","sig":"s3","insurance_status":"active"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	code := e.runImport(context.Background(), []string{"-file", path})

	assert.Equal(t, exitError, code)
	assert.Contains(t, out.String(), "#1:")
	assert.Contains(t, out.String(), "imported 2 of 3 credentials")
	assert.Len(t, e.store.List(context.Background()), 2)
}

func TestListAndShow(t *testing.T) {
	e, out := newTestEnv(t)
	_, err := e.store.Import(context.Background(), testutil.NewCredential(3))
	require.NoError(t, err)

	require.Equal(t, exitOK, e.runList(context.Background(), nil))
	assert.Contains(t, out.String(), "age=34 vaccination_type=COVID-19")

	out.Reset()
	require.Equal(t, exitOK, e.runShow(context.Background(), []string{"-id", "cred-3"}))
	assert.Contains(t, out.String(), `"sig": "sig-3"`)

	assert.Equal(t, exitUsage, e.runShow(context.Background(), nil))
}

func TestAttrFlag(t *testing.T) {
	attrs := attrFlag{}
	require.NoError(t, attrs.Set("age=34"))
	require.NoError(t, attrs.Set(" insurance_status = active "))
	assert.Error(t, attrs.Set("novalue"))
	assert.Error(t, attrs.Set("=x"))
	assert.Equal(t, "age=34 insurance_status=active", attrs.String())
}
