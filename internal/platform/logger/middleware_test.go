package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "json")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/api/paths/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"path not found"}`))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/paths/camera9", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", line["level"])
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v", line["status"])
	}
	if line["path"] != "/api/paths/camera9" || line["route"] != "/api/paths/{name}" {
		t.Errorf("path/route = %v/%v", line["path"], line["route"])
	}
	if line["size"] != float64(len(`{"error":"path not found"}`)) {
		t.Errorf("size = %v", line["size"])
	}
	if id, _ := line["request_id"].(string); id == "" {
		t.Error("expected request_id")
	}
}

func TestLevelFor(t *testing.T) {
	if levelFor(200).String() != "INFO" || levelFor(401).String() != "WARN" || levelFor(502).String() != "ERROR" {
		t.Errorf("unexpected levels: %v %v %v", levelFor(200), levelFor(401), levelFor(502))
	}
}
