package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/policy"
	"github.com/Strob0t/invoiceflow/internal/domain/risk"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
)

// ActionAutoApproved is the approval action Payment requires.
const ActionAutoApproved = "auto_approved"

// Approval routes the document through the policy table.
type Approval struct {
	info
	table *policy.Table
}

// NewApproval builds the approval stage.
func NewApproval(d Deps) *Approval {
	t := d.Policy
	if t == nil {
		t = policy.DefaultTable()
	}
	return &Approval{
		info: info{
			id:           agent.Approval,
			name:         "Approval Routing",
			capabilities: []string{"policy_evaluation", "tier_routing", "auto_approval"},
		},
		table: t,
	}
}

// Process implements stage.Stage.
func (a *Approval) Process(_ context.Context, doc *document.Document, rc *stageport.RunContext) (*decision.Decision, error) {
	if err := a.checkForced(doc); err != nil {
		return nil, err
	}

	f := FactsFor(doc, rc)
	ev := a.table.Evaluate(f)

	var d *decision.Decision
	switch {
	case ev.AutoApproved:
		d = decision.New(a.id, doc.ID, ActionAutoApproved,
			fmt.Sprintf("Amount %.2f within the auto-approval band, %s.", f.Amount, ev.Summary()),
			0.99, decision.OutcomeExecuted)
	default:
		confidence := 0.9
		if ev.Escalated {
			confidence = 0.95
		}
		reason := fmt.Sprintf("Amount %.2f routed to %s approval, %s.", f.Amount, ev.Tier, ev.Summary())
		if ev.RiskElevated {
			reason += " Risk is elevated."
		}
		d = decision.New(a.id, doc.ID, "route_to_"+string(ev.Tier), reason, confidence, decision.OutcomeQueuedForReview)
	}
	return d.
		With(decision.AttrApprovalTier, string(ev.Tier)).
		With(decision.AttrFailures, strings.Join(ev.Failed, ",")).
		With(decision.AttrFlags, strings.Join(ev.Flagged, ",")), nil
}

// FactsFor assembles policy facts from the document and earlier decisions.
func FactsFor(doc *document.Document, rc *stageport.RunContext) policy.Facts {
	f := policy.Facts{
		Amount:    doc.Amount(),
		NewVendor: doc.MetaBool(document.MetaNewVendor),
	}
	if c, ok := rc.Latest(agent.Compliance); ok {
		f.ComplianceKnown = true
		if v := c.Attr(AttrVendorCompliant); v != "" {
			f.VendorCompliant = v == "true"
		} else {
			f.VendorCompliant = c.Outcome != decision.OutcomeBlocked
		}
	}
	if r, ok := rc.Latest(agent.Risk); ok {
		if lvl := risk.Level(r.Attr(decision.AttrRiskLevel)); lvl != "" {
			f.RiskKnown = true
			f.RiskLevel = lvl
		}
		if r.Attr(AttrNewVendor) == "true" {
			f.NewVendor = true
		}
	}
	return f
}
