// Package decision defines the typed output of a pipeline stage and the
// append-only log a run accumulates.
package decision

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the only field of a decision the orchestrator reads for control flow.
type Outcome string

const (
	OutcomeExecuted        Outcome = "executed"
	OutcomeQueuedForReview Outcome = "queued_for_review"
	OutcomeBlocked         Outcome = "blocked"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeExecuted || o == OutcomeQueuedForReview || o == OutcomeBlocked
}

// Attribute keys shared between stages.
const (
	AttrRiskLevel      = "risk_level"
	AttrRiskScore      = "risk_score"
	AttrGLCode         = "gl_code"
	AttrCostCenter     = "cost_center"
	AttrApprovalTier   = "approval_tier"
	AttrMatchType      = "match_type"
	AttrPONumber       = "po_number"
	AttrVariance       = "variance_percent"
	AttrPaymentMethod  = "payment_method"
	AttrPaymentDate    = "payment_date"
	AttrDiscountAmount = "discount_amount"
	AttrRebateAmount   = "rebate_amount"
	AttrTemplate       = "template"
	AttrRecipient      = "recipient"
	AttrAutoSend       = "auto_send"
	AttrFailures       = "failures"
	AttrFlags          = "flags"
	AttrHaltReason     = "halt_reason"
)

// Decision is the atomic output of one stage invocation.
type Decision struct {
	ID         string            `json:"id"`
	AgentID    string            `json:"agent_id"`
	DocumentID string            `json:"document_id"`
	TraceID    string            `json:"trace_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Action     string            `json:"action"`
	Reasoning  string            `json:"reasoning"`
	Confidence float64           `json:"confidence"`
	Outcome    Outcome           `json:"outcome"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New builds a decision with a fresh id and a clamped confidence.
// TraceID is stamped by the orchestrator when the decision is recorded.
func New(agentID, documentID, action, reasoning string, confidence float64, outcome Outcome) *Decision {
	return &Decision{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		DocumentID: documentID,
		Timestamp:  time.Now().UTC(),
		Action:     action,
		Reasoning:  reasoning,
		Confidence: Clamp(confidence),
		Outcome:    outcome,
		Attributes: map[string]string{},
	}
}

// With sets an attribute and returns the decision for chaining.
func (d *Decision) With(key, value string) *Decision {
	if d.Attributes == nil {
		d.Attributes = map[string]string{}
	}
	d.Attributes[key] = value
	return d
}

// Attr returns an attribute value, or "" when absent.
func (d Decision) Attr(key string) string {
	if d.Attributes == nil {
		return ""
	}
	return d.Attributes[key]
}

// Clamp limits a confidence score to [0, 1].
func Clamp(c float64) float64 {
	switch {
	case c < 0 || c != c:
		return 0
	case c > 1:
		return 1
	}
	return c
}
