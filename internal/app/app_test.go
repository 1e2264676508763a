package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-debts-client/internal/config"
	"github.com/samvad-hq/samvad-debts-client/internal/storage"
	"github.com/samvad-hq/samvad-debts-client/internal/stubserver"
	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
	"github.com/samvad-hq/samvad-debts-client/pkg/publishers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventSink struct {
	mu     sync.Mutex
	events []publishers.Event
	srv    *httptest.Server
}

func newEventSink(t *testing.T) *eventSink {
	t.Helper()
	s := &eventSink{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.events = append(s.events, evt)
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *eventSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

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

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppName:                "debts-test",
		APIBaseURL:             baseURL,
		APITimeout:             5 * time.Second,
		SummaryMode:            "strict",
		JournalType:            "bbolt",
		JournalPath:            filepath.Join(dir, "journal.db"),
		JournalTTL:             time.Hour,
		JournalCleanupInterval: time.Hour,
		MetricsFile:            filepath.Join(dir, "debts.prom"),
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAppMutationsAreJournaledAndPublished(t *testing.T) {
	sink := newEventSink(t)
	cfg := testConfig(t, startStub(t))
	cfg.PublishersFile = writeFile(t, "publishers.yaml", `
publishers:
  - id: webhook
    type: http
    http:
      url: `+sink.srv.URL+`
`)

	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)

	created, err := a.Create(ctx, obligations.Obligation{
		Creditor: obligations.Ptr("Acme"),
		Amount:   obligations.Ptr(json.Number("10")),
		Currency: obligations.Ptr("EUR"),
	})
	require.NoError(t, err)
	id := created.Identifier()
	require.False(t, id.IsZero())

	_, err = a.Update(ctx, id, obligations.Obligation{Status: obligations.Ptr("paid")})
	require.NoError(t, err)
	_, err = a.Remove(ctx, id)
	require.NoError(t, err)

	_, err = a.Remove(ctx, id)
	var remote *obligations.RemoteRequestError
	require.ErrorAs(t, err, &remote)
	assert.True(t, remote.NotFound())

	assert.Equal(t, []string{
		publishers.EventDebtCreated,
		publishers.EventDebtUpdated,
		publishers.EventDebtRemoved,
	}, sink.types())

	history, err := a.History(0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, obligations.OpRemove, history[0].Op)
	assert.Equal(t, storage.OutcomeFailed, history[0].Outcome)
	assert.Equal(t, http.StatusNotFound, history[0].StatusCode)
	assert.Equal(t, obligations.OpCreate, history[3].Op)
	assert.Equal(t, id.String(), history[3].DebtID)

	require.NoError(t, a.Close(ctx))
	raw, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `debts_client_requests_total{op="remove",outcome="error"} 1`)
}

func TestAppPublishFailureDoesNotFailMutation(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	cfg := testConfig(t, startStub(t))
	cfg.PublishersFile = writeFile(t, "publishers.json",
		`{"publishers":[{"id":"down","type":"http","http":{"url":"`+down.URL+`"}}]}`)

	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	_, err = a.Create(ctx, obligations.Obligation{Creditor: obligations.Ptr("Acme")})
	assert.NoError(t, err)
}

func TestAppFiltersMergePresetWithExplicit(t *testing.T) {
	cfg := testConfig(t, startStub(t,
		map[string]any{"id": 1, "status": "open", "currency": "EUR"},
		map[string]any{"id": 2, "status": "open", "currency": "USD"},
		map[string]any{"id": 3, "status": "closed", "currency": "EUR"},
	))
	cfg.JournalType = "none"
	cfg.PresetsFile = writeFile(t, "presets.yaml", `
presets:
  - name: open
    filters:
      status: open
      currency: USD
`)

	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close(ctx)

	fs, err := a.Filters("open", obligations.FilterSet{"currency": "EUR"})
	require.NoError(t, err)
	debts, err := a.List(ctx, fs)
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, obligations.IntID(1), debts[0].Identifier())

	_, err = a.Filters("missing", nil)
	assert.Error(t, err)

	snap, err := a.Snapshot(ctx, obligations.FilterSet{"status": "closed"})
	require.NoError(t, err)
	assert.Len(t, snap.Debts, 1)
	require.True(t, snap.Summary.Present())

	// The summary ignores list filters and covers every debt.
	var summary struct {
		Count int `json:"count"`
	}
	require.NoError(t, snap.Summary.Decode(&summary))
	assert.Equal(t, 3, summary.Count)
}

func TestNewRejectsBadSetup(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, nil, nil)
	assert.Error(t, err)

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.SummaryMode = "sometimes"
	_, err = New(ctx, cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t, "http://127.0.0.1:1")
	cfg.PublishersFile = writeFile(t, "publishers.yaml", "publishers: []")
	_, err = New(ctx, cfg, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "publishers"))
}
