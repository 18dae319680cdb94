package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// recordingHandler collects slog.Records for test assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	delay   time.Duration
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestAsyncHandler_BasicWrite(t *testing.T) {
	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, 100, 1)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	if err := ah.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	ah.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
}

func TestAsyncHandler_ConcurrentWrites(t *testing.T) {
	const goroutines = 20
	const perGoroutine = 50

	inner := &recordingHandler{}
	ah := NewAsyncHandler(inner, goroutines*perGoroutine, 4)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0))
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got := int64(inner.count()) + ah.DroppedCount(); got != goroutines*perGoroutine {
		t.Fatalf("expected %d handled+dropped, got %d", goroutines*perGoroutine, got)
	}
}

func TestAsyncHandler_DropsWhenFull(t *testing.T) {
	inner := &recordingHandler{delay: 20 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 20 {
		_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "flood", 0))
	}
	ah.Close()

	if ah.DroppedCount() == 0 {
		t.Fatal("expected some records to be dropped")
	}
}

func TestAsyncHandler_CloseIdempotent(t *testing.T) {
	ah := NewAsyncHandler(&recordingHandler{}, 10, 1)
	ah.Close()
	ah.Close()

	// Writes after close are counted as dropped, never panic.
	_ = ah.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "late", 0))
	if ah.DroppedCount() != 1 {
		t.Fatalf("expected 1 dropped record, got %d", ah.DroppedCount())
	}
}
