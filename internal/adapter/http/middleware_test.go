package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/invoiceflow/internal/logger"
)

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS("https://ap.example.com")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/documents/process", http.NoBody))

	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: status %d, next called %v", rec.Code, called)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ap.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "X-Trace-ID" {
		t.Fatalf("expose-headers = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plan", http.NoBody))
	if !called {
		t.Fatal("GET should reach the next handler")
	}
}

func TestLoggerRecordsStatusAndTrace(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/route", http.NoBody)
	req = req.WithContext(logger.WithTraceID(req.Context(), "trace-7"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if line["level"] != "ERROR" || line["status"] != float64(http.StatusBadGateway) || line["trace_id"] != "trace-7" {
		t.Fatalf("unexpected log line %v", line)
	}
}

// hijackable is a recorder that supports connection takeover.
type hijackable struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackable) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestResponseWriterUpgradeSupport(t *testing.T) {
	inner := &hijackable{ResponseRecorder: httptest.NewRecorder()}
	var rw http.ResponseWriter = &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	if _, _, err := rw.(http.Hijacker).Hijack(); err != nil || !inner.hijacked {
		t.Fatalf("hijack not delegated: err=%v", err)
	}

	plain := httptest.NewRecorder()
	rw = &responseWriter{ResponseWriter: plain, status: http.StatusOK}
	if _, _, err := rw.(http.Hijacker).Hijack(); err == nil {
		t.Fatal("expected error when upstream cannot hijack")
	}
	rw.(http.Flusher).Flush()
	if !plain.Flushed {
		t.Fatal("flush not delegated")
	}
}
