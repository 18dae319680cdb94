package pipeline

import (
	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
)

// RouteTable maps a coarse document status to the single stage that handles
// it next. Statuses without an entry cannot be routed.
var RouteTable = map[document.Status]string{
	document.StatusReceived:        agent.Capture,
	document.StatusCaptured:        agent.Compliance,
	document.StatusValidated:       agent.Classification,
	document.StatusClassified:      agent.Matching,
	document.StatusMatched:         agent.Risk,
	document.StatusRiskAssessed:    agent.Approval,
	document.StatusApproved:        agent.Payment,
	document.StatusPendingApproval: agent.Communication,
	document.StatusScheduled:       agent.Communication,
	document.StatusNotified:        agent.Advisory,
	document.StatusBlocked:         agent.Communication,
}

// NextStage returns the stage that handles a document in the given status.
func NextStage(s document.Status) (string, bool) {
	id, ok := RouteTable[s]
	return id, ok
}

// Advance returns the document status after a stage produced a decision.
// Stages that do not move the lifecycle leave the status unchanged.
func Advance(current document.Status, agentID string, outcome decision.Outcome) document.Status {
	if outcome == decision.OutcomeBlocked {
		return document.StatusBlocked
	}
	switch agentID {
	case agent.Capture:
		return document.StatusCaptured
	case agent.Compliance:
		return document.StatusValidated
	case agent.Classification:
		return document.StatusClassified
	case agent.Matching:
		return document.StatusMatched
	case agent.Risk:
		return document.StatusRiskAssessed
	case agent.Approval:
		if outcome == decision.OutcomeExecuted {
			return document.StatusApproved
		}
		return document.StatusPendingApproval
	case agent.Payment:
		if outcome == decision.OutcomeExecuted {
			return document.StatusScheduled
		}
	case agent.Communication:
		if current != document.StatusBlocked && outcome == decision.OutcomeExecuted {
			return document.StatusNotified
		}
	}
	return current
}

// AdvanceRoute is Advance for single-step dispatch, where advisory is the
// last step and completes the document.
func AdvanceRoute(current document.Status, agentID string, outcome decision.Outcome) document.Status {
	if agentID == agent.Advisory && current == document.StatusNotified {
		return document.StatusCompleted
	}
	return Advance(current, agentID, outcome)
}
