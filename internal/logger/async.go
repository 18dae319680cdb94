package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping log handlers on shutdown.
type Closer interface {
	Close()
}

// asyncState is shared by an AsyncHandler and every handler derived from it
// via WithAttrs/WithGroup.
type asyncState struct {
	ch      chan asyncRecord
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Int64
}

// asyncRecord pairs a record with the handler chain it was logged through,
// so attributes added with WithAttrs survive the hand-off.
type asyncRecord struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler hands records to a small worker pool over a buffered channel.
// Records are dropped (and counted) when the buffer is full so that stage
// invocations never block on log I/O.
type AsyncHandler struct {
	inner slog.Handler
	state *asyncState
}

// NewAsyncHandler creates an AsyncHandler with the given buffer size and worker count.
func NewAsyncHandler(inner slog.Handler, bufSize, workers int) *AsyncHandler {
	if workers < 1 {
		workers = 1
	}
	st := &asyncState{ch: make(chan asyncRecord, bufSize)}
	for range workers {
		st.wg.Add(1)
		go st.drain()
	}
	return &AsyncHandler{inner: inner, state: st}
}

func (s *asyncState) drain() {
	defer s.wg.Done()
	for r := range s.ch {
		_ = r.h.Handle(context.Background(), r.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the buffer is full or the handler is closed.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	if h.state.closed {
		h.state.dropped.Add(1)
		return nil
	}
	select {
	case h.state.ch <- asyncRecord{h: h.inner, rec: rec.Clone()}:
	default:
		h.state.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the same workers with attrs added to the inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), state: h.state}
}

// WithGroup returns a handler sharing the same workers with a group added to the inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), state: h.state}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.state.dropped.Load()
}

// Close stops accepting records, drains the buffer and waits for workers.
// Safe to call more than once.
func (h *AsyncHandler) Close() {
	h.state.mu.Lock()
	if h.state.closed {
		h.state.mu.Unlock()
		return
	}
	h.state.closed = true
	close(h.state.ch)
	h.state.mu.Unlock()

	h.state.wg.Wait()
	if n := h.state.dropped.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "logger: %d records dropped\n", n)
	}
}
