package pipeline

import (
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
)

// Status is the final status of a run.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusBlocked        Status = "blocked"
	StatusReviewRequired Status = "review_required"
)

// HaltReason explains why a run stopped before the end of its plan.
type HaltReason string

const (
	HaltNone        HaltReason = ""
	HaltBlocked     HaltReason = "blocked"
	HaltStageFailed HaltReason = "stage_failed"
	HaltDeadline    HaltReason = "deadline"
)

// Notifies reports whether the halt handler should run the notification
// stage for this reason. Failure notification is opt-in.
func (h HaltReason) Notifies(notifyOnFailure bool) bool {
	switch h {
	case HaltBlocked:
		return true
	case HaltStageFailed:
		return notifyOnFailure
	}
	return false
}

// PipelineError records an infrastructure failure of one stage invocation.
type PipelineError struct {
	AgentID     string    `json:"agent_id"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}

// Result is the outcome of one document run.
type Result struct {
	DocumentID  string              `json:"document_id"`
	TraceID     string              `json:"trace_id"`
	Status      Status              `json:"status"`
	Decisions   []decision.Decision `json:"decisions"`
	Errors      []PipelineError     `json:"errors"`
	Halt        HaltReason          `json:"halt,omitempty"`
	HaltedBy    string              `json:"halted_by,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	DurationMs  int64               `json:"duration_ms"`
}

// FinalStatus applies the run status rule: failed on any non-recoverable
// error, else blocked on any blocked decision, else review_required on any
// queued decision, else completed.
func FinalStatus(decisions []decision.Decision, errs []PipelineError) Status {
	for _, e := range errs {
		if !e.Recoverable {
			return StatusFailed
		}
	}
	review := false
	for _, d := range decisions {
		switch d.Outcome {
		case decision.OutcomeBlocked:
			return StatusBlocked
		case decision.OutcomeQueuedForReview:
			review = true
		}
	}
	if review {
		return StatusReviewRequired
	}
	return StatusCompleted
}

// DocumentStatus maps a run status onto the document lifecycle. A run that
// needs review leaves the document where its last stage put it.
func DocumentStatus(s Status, current document.Status) document.Status {
	switch s {
	case StatusCompleted:
		return document.StatusCompleted
	case StatusFailed:
		return document.StatusFailed
	case StatusBlocked:
		return document.StatusBlocked
	}
	return current
}
