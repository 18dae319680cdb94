package service

import (
	"sync"
	"time"

	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/resilience"
)

// StageRegistry holds registered stages with their status counters and
// circuit breakers. Each orchestrator owns its own registry.
type StageRegistry struct {
	mu      sync.RWMutex
	entries map[string]*stageEntry
	order   []string

	breakerFailures int
	breakerTimeout  time.Duration
}

// stageEntry guards the observable state of one stage.
type stageEntry struct {
	stage   stageport.Stage
	breaker *resilience.Breaker

	mu     sync.Mutex
	status agent.Status
}

// NewStageRegistry creates an empty registry whose breakers follow cfg.
func NewStageRegistry(cfg config.Breaker) *StageRegistry {
	return &StageRegistry{
		entries:         make(map[string]*stageEntry),
		breakerFailures: cfg.MaxFailures,
		breakerTimeout:  cfg.Timeout,
	}
}

// Register adds a stage. It returns false and keeps the existing entry when
// the id is already registered.
func (r *StageRegistry) Register(s stageport.Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[s.ID()]; ok {
		return false
	}
	r.entries[s.ID()] = &stageEntry{
		stage:   s,
		breaker: resilience.NewBreaker(r.breakerFailures, r.breakerTimeout),
		status: agent.Status{
			ID:           s.ID(),
			Name:         s.Name(),
			Capabilities: s.Capabilities(),
			State:        agent.StateIdle,
			Circuit:      string(resilience.StateClosed),
		},
	}
	r.order = append(r.order, s.ID())
	return true
}

func (r *StageRegistry) lookup(id string) (*stageEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Has reports whether a stage is registered.
func (r *StageRegistry) Has(id string) bool {
	_, ok := r.lookup(id)
	return ok
}

// Status returns a snapshot of one stage's status.
func (r *StageRegistry) Status(id string) (agent.Status, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return agent.Status{}, false
	}
	return e.snapshot(), true
}

// Statuses returns snapshots of all stages in registration order.
func (r *StageRegistry) Statuses() []agent.Status {
	r.mu.RLock()
	entries := make([]*stageEntry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	r.mu.RUnlock()

	out := make([]agent.Status, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	return out
}

func (e *stageEntry) snapshot() agent.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.status
	s.Capabilities = append([]string(nil), e.status.Capabilities...)
	s.Circuit = string(e.breaker.State())
	return s
}

func (e *stageEntry) begin() {
	e.mu.Lock()
	e.status.State = agent.StateProcessing
	e.mu.Unlock()
}

// finish records one invocation and returns the resulting snapshot.
func (e *stageEntry) finish(at time.Time, latency time.Duration, failed bool) agent.Status {
	e.mu.Lock()
	if failed {
		e.status.State = agent.StateError
		e.status.FailureCount++
	} else {
		e.status.State = agent.StateIdle
		e.status.LastProcessedAt = at
		e.status.ProcessedCount++
		ms := float64(latency.Microseconds()) / 1000
		e.status.AverageLatencyMs = agent.RunningMean(e.status.AverageLatencyMs, e.status.ProcessedCount, ms)
	}
	e.mu.Unlock()
	return e.snapshot()
}
