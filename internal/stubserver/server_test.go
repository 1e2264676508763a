package stubserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	srv, err := New(Options{Registry: reg, Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, reg
}

func doJSON(t *testing.T, srv *Server, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := doJSON(t, srv, http.MethodPost, "/debts", `{"creditor":"bank","amount":12.5}`)
	if status != http.StatusCreated {
		t.Fatalf("status = %d body=%s", status, body)
	}
	var rec map[string]any
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["id"] != float64(1) {
		t.Fatalf("expected id 1, got %v", rec["id"])
	}
	if rec["created_at"] != "2026-10-01T12:00:00Z" {
		t.Fatalf("created_at = %v", rec["created_at"])
	}
	if rec["amount"] != 12.5 {
		t.Fatalf("amount = %v", rec["amount"])
	}
}

func TestCreateRejectsNonObject(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := doJSON(t, srv, http.MethodPost, "/debts", `[1,2]`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(string(body), "invalid debt payload") {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	srv, reg := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		body := ""
		if method == http.MethodPut {
			body = `{"status":"closed"}`
		}
		status, _ := doJSON(t, srv, method, "/debts/404", body)
		if status != http.StatusNotFound {
			t.Fatalf("%s: status = %d", method, status)
		}
	}

	if got := testutil.CollectAndCount(reg, "debts_stub_requests_total"); got != 3 {
		t.Fatalf("expected 3 metric series, got %d", got)
	}
}

func TestListFiltersAndSummary(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := srv.Seed(
		map[string]any{"id": 1, "status": "open", "amount": 10, "currency": "USD"},
		map[string]any{"id": 2, "status": "closed", "amount": 4, "currency": "USD"},
		map[string]any{"status": "open", "amount": 1, "currency": "EUR"},
	); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	status, body := doJSON(t, srv, http.MethodGet, "/debts?status=open", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var recs []map[string]any
	if err := json.Unmarshal(body, &recs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(recs) != 2 || recs[0]["id"] != float64(1) || recs[1]["id"] != float64(3) {
		t.Fatalf("unexpected filtered list %v", recs)
	}

	_, body = doJSON(t, srv, http.MethodGet, "/debts?summary_only=true&status=open", "")
	var env struct {
		Summary summary `json:"summary"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if env.Summary.Count != 2 || env.Summary.TotalsByCurrency["USD"] != 10 || env.Summary.TotalsByCurrency["EUR"] != 1 {
		t.Fatalf("unexpected summary %+v", env.Summary)
	}
}

func TestSeedRejectsDuplicateIDs(t *testing.T) {
	srv, _ := newTestServer(t)
	err := srv.Seed(map[string]any{"id": "a"}, map[string]any{"id": "a"})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, http.MethodGet, "/healthz", "")

	status, body := doJSON(t, srv, http.MethodGet, "/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(string(body), `debts_stub_requests_total{method="GET",path="/healthz",status="200"} 1`) {
		t.Fatalf("metrics output missing healthz counter:\n%s", body)
	}
}
