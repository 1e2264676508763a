package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPPublisherSendsDebtEvent(t *testing.T) {
	var (
		gotHeader  string
		gotTenant   string
		gotPayload map[string]json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		gotHeader = r.Header.Get("X-Event-Type")
		gotTenant = r.Header.Get("X-Tenant")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Tenant": "acme"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := createdEvent()
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotHeader != EventDebtCreated {
		t.Fatalf("X-Event-Type = %q", gotHeader)
	}
	if gotTenant != "acme" {
		t.Fatalf("configured header missing, got %q", gotTenant)
	}
	if string(gotPayload["debt_id"]) != `"7"` {
		t.Fatalf("debt_id = %s", gotPayload["debt_id"])
	}
	if string(gotPayload["id"]) != `"`+evt.ID+`"` {
		t.Fatalf("event id = %s", gotPayload["id"])
	}
	var debt map[string]any
	if err := json.Unmarshal(gotPayload["debt"], &debt); err != nil {
		t.Fatalf("decode debt: %v", err)
	}
	if debt["creditor"] != "Acme" || debt["id"] != float64(7) {
		t.Fatalf("unexpected debt payload: %#v", debt)
	}
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "sink unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: srv.URL, Method: http.MethodPost, TimeoutSeconds: 1},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	err = pub.Publish(context.Background(), createdEvent())
	if err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
	if want := "sink unavailable"; !contains(err.Error(), want) {
		t.Fatalf("error %q should carry body snippet %q", err, want)
	}
}

func TestNewHTTPPublisherRequiresConfig(t *testing.T) {
	if _, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "hook", Type: TypeHTTP}, nil); err == nil {
		t.Fatalf("expected error without http block")
	}
}
