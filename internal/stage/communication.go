package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
)

// Message templates.
const (
	TemplateMissingInfo   = "missing_info_request"
	TemplateDispute       = "dispute_response"
	TemplatePaymentStatus = "payment_status_update"
	TemplateRemittance    = "remittance_advice"
	TemplateReceipt       = "receipt_confirmation"
)

// Communication drafts the vendor message that fits the run so far.
type Communication struct {
	info
}

// NewCommunication builds the communication stage.
func NewCommunication(Deps) *Communication {
	return &Communication{info: info{
		id:           agent.Communication,
		name:         "Vendor Communication",
		capabilities: []string{"template_selection", "vendor_notification"},
	}}
}

// Process implements stage.Stage.
func (c *Communication) Process(_ context.Context, doc *document.Document, rc *stageport.RunContext) (*decision.Decision, error) {
	if err := c.checkForced(doc); err != nil {
		return nil, err
	}

	template, why := SelectTemplate(rc)
	recipient := strings.TrimSpace(doc.Meta(document.MetaSenderEmail))
	autoSend := template != TemplateDispute && recipient != ""

	if autoSend {
		return decision.New(c.id, doc.ID, "send_"+template,
			fmt.Sprintf("Sending %s to %s: %s.", template, recipient, why), 0.9, decision.OutcomeExecuted).
			With(decision.AttrTemplate, template).
			With(decision.AttrRecipient, recipient).
			With(decision.AttrAutoSend, "true"), nil
	}

	hold := "dispute responses need human review"
	if recipient == "" {
		hold = "no recipient address on file"
	}
	return decision.New(c.id, doc.ID, "draft_"+template,
		fmt.Sprintf("Drafted %s: %s; %s.", template, why, hold), 0.7, decision.OutcomeQueuedForReview).
		With(decision.AttrTemplate, template).
		With(decision.AttrRecipient, recipient).
		With(decision.AttrAutoSend, "false"), nil
}

// SelectTemplate picks a template from the decisions made so far.
func SelectTemplate(rc *stageport.RunContext) (template, reason string) {
	if d, ok := rc.Latest(agent.Capture); ok && d.Outcome != decision.OutcomeExecuted {
		return TemplateMissingInfo, "extraction incomplete"
	}
	if d, ok := rc.Latest(agent.Compliance); ok && d.Outcome == decision.OutcomeBlocked {
		return TemplateMissingInfo, "compliance checks failed"
	}
	for _, id := range []string{agent.Matching, agent.Risk} {
		if d, ok := rc.Latest(id); ok && d.Outcome != decision.OutcomeExecuted {
			return TemplateDispute, id + " raised an exception (" + d.Action + ")"
		}
	}
	for _, d := range rc.All() {
		if d.Outcome == decision.OutcomeBlocked {
			return TemplateDispute, d.AgentID + " blocked the invoice"
		}
	}
	if d, ok := rc.Latest(agent.Payment); ok {
		if d.Outcome == decision.OutcomeExecuted {
			return TemplateRemittance, "payment scheduled for " + d.Attr(decision.AttrPaymentDate)
		}
		return TemplatePaymentStatus, "payment awaiting approval"
	}
	if d, ok := rc.Latest(agent.Approval); ok && d.Outcome != decision.OutcomeExecuted {
		return TemplatePaymentStatus, "awaiting " + d.Attr(decision.AttrApprovalTier) + " approval"
	}
	return TemplateReceipt, "invoice received"
}
