// Package stage defines the contract every pipeline stage implements.
package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
)

// ErrTransient marks a failure worth retrying, such as a store timeout.
var ErrTransient = errors.New("transient stage failure")

// Transient wraps err so the orchestrator retries it.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Stage turns a document plus the run's prior decisions into one decision.
// Business conditions are expressed through the decision outcome; an error
// is returned only for infrastructure failures.
type Stage interface {
	ID() string
	Name() string
	Capabilities() []string
	Process(ctx context.Context, doc *document.Document, rc *RunContext) (*decision.Decision, error)
}

// RunContext is the read-only view of one run handed to stages.
type RunContext struct {
	TraceID string
	log     *decision.Log
}

// NewRunContext wraps a run's decision log.
func NewRunContext(traceID string, log *decision.Log) *RunContext {
	if log == nil {
		log = decision.NewLog()
	}
	return &RunContext{TraceID: traceID, log: log}
}

// ByAgent returns the decisions a stage made in this run.
func (rc *RunContext) ByAgent(agentID string) []decision.Decision {
	if rc == nil {
		return nil
	}
	return rc.log.ByAgent(agentID)
}

// Latest returns the most recent decision of a stage in this run.
func (rc *RunContext) Latest(agentID string) (decision.Decision, bool) {
	if rc == nil {
		return decision.Decision{}, false
	}
	return rc.log.Latest(agentID)
}

// All returns a copy of the run's decisions in order.
func (rc *RunContext) All() []decision.Decision {
	if rc == nil {
		return nil
	}
	return rc.log.All()
}

// Len returns the number of decisions made so far.
func (rc *RunContext) Len() int {
	if rc == nil {
		return 0
	}
	return rc.log.Len()
}
