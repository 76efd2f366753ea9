package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(OutcomeSuccess, 2*time.Second)
	m.ObserveRun(OutcomeEmpty, time.Second)
	m.ObserveRun(OutcomeEmpty, time.Second)

	if got := testutil.ToFloat64(m.Runs.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues(OutcomeEmpty)); got != 2 {
		t.Errorf("empty runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got == 0 {
		t.Error("LastSuccess should be set after a successful run")
	}
}

func TestPush(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.EventsFetched.Add(3)
	if err := m.Push(context.Background(), srv.URL); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %q, want PUT", method)
	}
	if path != "/metrics/job/evcollect" {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(body, "evcollect_events_fetched_total") {
		t.Error("pushed body should contain evcollect_events_fetched_total")
	}
}

func TestPush_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := New().Push(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error, got nil")
	}
}
