package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newProber(slow time.Duration) *Prober {
	return &Prober{
		HTTP:          &http.Client{},
		SlowThreshold: slow,
	}
}

func TestProbe_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"running":true}}`))
	}))
	defer srv.Close()

	res := newProber(0).Probe(context.Background(), Endpoint{Name: "ok", URL: srv.URL})
	if res.Status != StatusHealthy {
		t.Fatalf("status=%s want=%s (message=%q)", res.Status, StatusHealthy, res.Message)
	}
	if res.LatencyMs == nil {
		t.Fatalf("latency must be recorded for a completed request")
	}
	if !res.Usable() {
		t.Fatalf("healthy probe must carry a data payload")
	}
}

func TestProbe_Non2xxIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := newProber(0).Probe(context.Background(), Endpoint{Name: "broken", URL: srv.URL})
	if res.Status != StatusFailed {
		t.Fatalf("status=%s want=%s", res.Status, StatusFailed)
	}
	if res.Usable() {
		t.Fatalf("failed probe must not carry a payload")
	}
	if !strings.Contains(res.Message, "500") {
		t.Fatalf("message should name the status code, got %q", res.Message)
	}
}

func TestProbe_TimeoutIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	res := newProber(0).Probe(context.Background(), Endpoint{
		Name:    "slowpoke",
		URL:     srv.URL,
		Timeout: 30 * time.Millisecond,
	})
	if res.Status != StatusFailed {
		t.Fatalf("status=%s want=%s", res.Status, StatusFailed)
	}
	if res.LatencyMs != nil {
		t.Fatalf("a request that never completed has no latency")
	}
}

func TestProbe_MalformedBodyIsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	res := newProber(0).Probe(context.Background(), Endpoint{Name: "weird", URL: srv.URL})
	if res.Status != StatusDegraded {
		t.Fatalf("status=%s want=%s", res.Status, StatusDegraded)
	}
	if res.Usable() {
		t.Fatalf("malformed body must not be handed to the resolver")
	}
}

func TestProbe_SuccessFalseIsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"data":{"running":true}}`))
	}))
	defer srv.Close()

	res := newProber(0).Probe(context.Background(), Endpoint{Name: "lying", URL: srv.URL})
	if res.Status != StatusDegraded {
		t.Fatalf("status=%s want=%s", res.Status, StatusDegraded)
	}
	if res.Usable() {
		t.Fatalf("success=false payload must not be handed to the resolver")
	}
}

func TestProbe_SlowResponseIsDegradedButUsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{"success":true,"data":{"running":true}}`))
	}))
	defer srv.Close()

	res := newProber(5 * time.Millisecond).Probe(context.Background(), Endpoint{Name: "sluggish", URL: srv.URL})
	if res.Status != StatusDegraded {
		t.Fatalf("status=%s want=%s", res.Status, StatusDegraded)
	}
	if !res.Usable() {
		t.Fatalf("slow but correct responses stay usable for resolution")
	}
}

func TestProbe_NeverPanicsOnBadURL(t *testing.T) {
	res := newProber(0).Probe(context.Background(), Endpoint{Name: "nowhere", URL: "http://127.0.0.1:0"})
	if res.Status != StatusFailed {
		t.Fatalf("status=%s want=%s", res.Status, StatusFailed)
	}
	if res.Message == "" {
		t.Fatalf("failure must carry a human-readable message")
	}
}
