package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics, update func()) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler(update).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(body)
}

func TestHandlerRefreshesGaugesBeforeScrape(t *testing.T) {
	m := New()
	out := scrape(t, m, func() { m.SetPathGauges(3, 2, 7) })

	for _, want := range []string{
		"mtx_console_configured_paths 3",
		"mtx_console_active_paths 2",
		"mtx_console_readers 7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in scrape", want)
		}
	}
}

func TestCountersCarryLabels(t *testing.T) {
	m := New()
	m.IncPollCycles("success")
	m.IncPollCycles("skipped")
	m.IncMutations("delete", "rejected")
	m.IncUpstream("list live paths", "unreachable")
	m.SetConsecutivePollFailures(4)
	m.AddEventSubscribers(2)
	m.AddEventSubscribers(-1)

	out := scrape(t, m, nil)
	for _, want := range []string{
		`mtx_console_poll_cycles_total{result="success"} 1`,
		`mtx_console_poll_cycles_total{result="skipped"} 1`,
		`mtx_console_mutations_total{op="delete",result="rejected"} 1`,
		`mtx_console_upstream_requests_total{op="list live paths",outcome="unreachable"} 1`,
		"mtx_console_poll_consecutive_failures 4",
		"mtx_console_event_subscribers 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in scrape:\n%s", want, out)
		}
	}
}

func TestRequestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(RequestMiddleware(m))
	r.Get("/api/paths/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/paths/camera1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/paths/camera2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	out := scrape(t, m, nil)
	for _, want := range []string{
		"mtx_console_requests_total 3",
		"mtx_console_errors_total 2",
		`mtx_console_request_duration_seconds_count{method="GET",route="/api/paths/{name}",status="4xx"} 2`,
		`mtx_console_request_duration_seconds_count{method="GET",route="/healthz",status="2xx"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in scrape:\n%s", want, out)
		}
	}
	if strings.Contains(out, "camera1") {
		t.Error("raw path names must not become labels")
	}
}

func TestObserveRequestUnmatchedRoute(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	if out := scrape(t, m, nil); !strings.Contains(out, `route="unmatched"`) {
		t.Errorf("expected unmatched route label:\n%s", out)
	}
}
