package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/invoiceflow/internal/adapter/ristretto"
	"github.com/Strob0t/invoiceflow/internal/middleware"
)

func TestIdempotencyReplaysSuccessfulPost(t *testing.T) {
	c, err := ristretto.New(1)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var calls atomic.Int32
	handler := middleware.Idempotency(c, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	}))

	send := func(method, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, http.NoBody)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		c.Wait()
		return rec
	}

	first := send(http.MethodPost, "/api/v1/documents/process", "k1")
	second := send(http.MethodPost, "/api/v1/documents/process", "k1")
	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}
	if second.Body.String() != first.Body.String() || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay body %q header %q", second.Body.String(), second.Header().Get("Idempotent-Replayed"))
	}

	send(http.MethodPost, "/api/v1/documents/route", "k1")
	send(http.MethodPost, "/api/v1/documents/process", "")
	send(http.MethodGet, "/api/v1/documents/process", "k1")
	if calls.Load() != 4 {
		t.Fatalf("handler calls = %d, want 4", calls.Load())
	}
}

func TestIdempotencySkipsFailedResponses(t *testing.T) {
	c, err := ristretto.New(1)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var calls atomic.Int32
	handler := middleware.Idempotency(c, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/x", http.NoBody)
		req.Header.Set("Idempotency-Key", "k")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		c.Wait()
	}
	if calls.Load() != 2 {
		t.Fatalf("failed response was replayed: calls = %d", calls.Load())
	}
}
