// Package pipeline defines the stage plan the orchestrator walks, the
// status lookup used for single-step dispatch, and the result of a run.
package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrNameRequired     = errors.New("plan name is required")
	ErrNoStages         = errors.New("plan must have at least one stage")
	ErrAgentIDRequired  = errors.New("stage agent_id is required")
	ErrDuplicateStage   = errors.New("stage appears more than once in the plan")
	ErrSelfParallel     = errors.New("stage lists itself as parallel")
	ErrUnknownParallel  = errors.New("parallel stage is not part of the plan")
	ErrParallelConflict = errors.New("stage belongs to more than one parallel group")
)

// StageDescriptor is static plan configuration for one stage.
type StageDescriptor struct {
	AgentID  string   `json:"agent_id" yaml:"agent_id"`
	Required bool     `json:"required" yaml:"required"`
	Parallel []string `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// Plan is the ordered list of stages a document passes through.
type Plan struct {
	Name   string            `json:"name" yaml:"name"`
	Stages []StageDescriptor `json:"stages" yaml:"stages"`
}

// Validate checks the plan for structural correctness.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if len(p.Stages) == 0 {
		return ErrNoStages
	}

	seen := make(map[string]bool, len(p.Stages))
	for i, s := range p.Stages {
		if s.AgentID == "" {
			return fmt.Errorf("stage %d: %w", i, ErrAgentIDRequired)
		}
		if seen[s.AgentID] {
			return fmt.Errorf("stage %q: %w", s.AgentID, ErrDuplicateStage)
		}
		seen[s.AgentID] = true
	}

	grouped := make(map[string]string)
	for _, s := range p.Stages {
		for _, id := range s.Parallel {
			if id == s.AgentID {
				return fmt.Errorf("stage %q: %w", s.AgentID, ErrSelfParallel)
			}
			if !seen[id] {
				return fmt.Errorf("stage %q lists %q: %w", s.AgentID, id, ErrUnknownParallel)
			}
			if owner, ok := grouped[id]; ok && owner != s.AgentID {
				return fmt.Errorf("stage %q claimed by %q and %q: %w", id, owner, s.AgentID, ErrParallelConflict)
			}
			grouped[id] = s.AgentID
		}
	}
	return nil
}

// Descriptor returns the descriptor of a stage in the plan.
func (p *Plan) Descriptor(agentID string) (StageDescriptor, bool) {
	for _, s := range p.Stages {
		if s.AgentID == agentID {
			return s, true
		}
	}
	return StageDescriptor{}, false
}

// IsRequired reports whether a stage is a required member of the plan.
func (p *Plan) IsRequired(agentID string) bool {
	d, ok := p.Descriptor(agentID)
	return ok && d.Required
}

// Group returns the stage ids a plan entry runs together with, the entry
// itself first. A sequential entry returns just its own id.
func (s StageDescriptor) Group() []string {
	ids := make([]string, 0, 1+len(s.Parallel))
	ids = append(ids, s.AgentID)
	ids = append(ids, s.Parallel...)
	return ids
}
