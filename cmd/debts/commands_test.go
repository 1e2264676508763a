package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-debts-client/internal/stubserver"
	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func startStub(t *testing.T, seed ...map[string]any) string {
	t.Helper()
	srv, err := stubserver.New(stubserver.Options{})
	require.NoError(t, err)
	require.NoError(t, srv.Seed(seed...))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return "http://" + ln.Addr().String()
}

// execute runs the CLI with a fresh command tree against baseURL.
func execute(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DEBTS_API_BASE_URL", baseURL)
	t.Setenv("DEBTS_JOURNAL_PATH", filepath.Join(t.TempDir(), "journal.db"))
	t.Setenv("DEBTS_LOG_LEVEL", "error")

	c := newCLI()
	root := c.rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	require.NoError(t, c.close(context.Background()))
	return out.String(), err
}

func TestListCommandFiltersAndRendersJSON(t *testing.T) {
	base := startStub(t,
		map[string]any{"id": 1, "status": "open"},
		map[string]any{"id": 2, "status": "closed"},
	)

	out, err := execute(t, base, "list", "--filter", "status=open")
	require.NoError(t, err)

	var debts []obligations.Obligation
	require.NoError(t, json.Unmarshal([]byte(out), &debts))
	require.Len(t, debts, 1)
	assert.Equal(t, obligations.IntID(1), debts[0].Identifier())
}

func TestGetCommandRendersYAML(t *testing.T) {
	base := startStub(t, map[string]any{"id": 7, "creditor": "Acme"})

	out, err := execute(t, base, "get", "7", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "creditor: Acme")
	assert.Contains(t, out, "id: 7")
}

func TestGetCommandPropagatesRemoteError(t *testing.T) {
	base := startStub(t)

	_, err := execute(t, base, "get", "404")
	var remote *obligations.RemoteRequestError
	require.ErrorAs(t, err, &remote)
	assert.True(t, remote.NotFound())
}

func TestCreateCommandRequiresRecord(t *testing.T) {
	base := startStub(t)

	_, err := execute(t, base, "create")
	assert.Error(t, err)

	out, err := execute(t, base, "create", "--data", `{"creditor":"Acme","priority":"high"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"priority": "high"`)
}

func TestSummaryCommand(t *testing.T) {
	base := startStub(t,
		map[string]any{"id": 1, "amount": 5, "currency": "EUR", "status": "open"},
	)

	out, err := execute(t, base, "summary")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 1, summary["count"])
}

func TestExportCommandWritesWorkbook(t *testing.T) {
	base := startStub(t,
		map[string]any{"id": 1, "creditor": "Acme", "amount": 5},
	)
	path := filepath.Join(t.TempDir(), "debts.xlsx")

	_, err := execute(t, base, "export", "--out", path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Debts")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = execute(t, base, "export")
	assert.Error(t, err)
}

func TestParseFilters(t *testing.T) {
	fs, err := parseFilters([]string{"status=open", "tag=a", "tag=b", "tag=c", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "open", fs["status"])
	assert.Equal(t, []string{"a", "b", "c"}, fs["tag"])
	assert.Equal(t, "a=b", fs["note"])

	_, err = parseFilters([]string{"nokey"})
	assert.Error(t, err)
	_, err = parseFilters([]string{"=x"})
	assert.Error(t, err)
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	wc := &failingCloser{closeErr: errors.New("disk full")}
	err := writeAndClose(wc, func(w io.Writer) error {
		_, err := w.Write([]byte("rows"))
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wc.closeErr)
	assert.True(t, wc.closed)
	assert.Equal(t, "rows", wc.String())
}

func TestWriteAndCloseClosesOnWriteError(t *testing.T) {
	wc := &failingCloser{}
	writeErr := errors.New("encode failed")
	err := writeAndClose(wc, func(io.Writer) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)
	assert.True(t, wc.closed)
}
