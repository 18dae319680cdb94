package pipeline

import "github.com/Strob0t/invoiceflow/internal/domain/agent"

// DefaultPlanName names the built-in plan.
const DefaultPlanName = "accounts-payable"

// DefaultPlan returns the built-in accounts-payable plan:
// capture, compliance, classification, matching with risk in parallel,
// approval, payment, then optional communication and advisory.
func DefaultPlan() *Plan {
	return &Plan{
		Name: DefaultPlanName,
		Stages: []StageDescriptor{
			{AgentID: agent.Capture, Required: true},
			{AgentID: agent.Compliance, Required: true},
			{AgentID: agent.Classification, Required: true},
			{AgentID: agent.Matching, Required: true, Parallel: []string{agent.Risk}},
			{AgentID: agent.Risk, Required: true},
			{AgentID: agent.Approval, Required: true},
			{AgentID: agent.Payment, Required: true},
			{AgentID: agent.Communication, Required: false},
			{AgentID: agent.Advisory, Required: false},
		},
	}
}
