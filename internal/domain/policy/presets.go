package policy

import "fmt"

// Preset rule ids.
const (
	RuleNonCompliantVendor = "noncompliant-vendor-block"
	RuleNewVendor          = "new-vendor-flag"
	RuleElevatedRisk       = "elevated-risk-flag"
	RuleAutoApproveFloor   = "auto-approve-floor"
	RuleAmountBand         = "amount-band-routing"
)

// PresetRules returns the standard approval rules in priority order.
func PresetRules() []Rule {
	return []Rule{
		{
			ID:        RuleNonCompliantVendor,
			Name:      "Non-compliant vendor",
			Condition: "vendor failed compliance checks",
			Action:    ActionBlock,
			Priority:  10,
			Active:    true,
			Check: func(f Facts, _ Bands) (Verdict, string) {
				switch {
				case !f.ComplianceKnown:
					return VerdictFlag, "no compliance result"
				case !f.VendorCompliant:
					return VerdictFail, "vendor is not compliant"
				}
				return VerdictPass, "vendor is compliant"
			},
		},
		{
			ID:        RuleNewVendor,
			Name:      "New vendor",
			Condition: "first invoice from this vendor",
			Action:    ActionFlag,
			Priority:  20,
			Active:    true,
			Check: func(f Facts, _ Bands) (Verdict, string) {
				if f.NewVendor {
					return VerdictFlag, "new vendor"
				}
				return VerdictPass, "known vendor"
			},
		},
		{
			ID:        RuleElevatedRisk,
			Name:      "Elevated risk",
			Condition: "risk level above low or unknown",
			Action:    ActionFlag,
			Priority:  30,
			Active:    true,
			Check: func(f Facts, _ Bands) (Verdict, string) {
				switch {
				case !f.RiskKnown:
					return VerdictFlag, "no risk assessment"
				case f.RiskElevated():
					return VerdictFlag, fmt.Sprintf("risk level %s", f.RiskLevel)
				}
				return VerdictPass, "risk level low"
			},
		},
		{
			ID:        RuleAutoApproveFloor,
			Name:      "Auto-approve floor",
			Condition: "amount within the auto-approval band",
			Action:    ActionAutoApprove,
			Priority:  40,
			Active:    true,
			Check: func(f Facts, b Bands) (Verdict, string) {
				if f.Amount <= b.AutoLimit {
					return VerdictPass, fmt.Sprintf("amount %.2f within %.2f", f.Amount, b.AutoLimit)
				}
				return VerdictNotApplicable, fmt.Sprintf("amount %.2f above %.2f", f.Amount, b.AutoLimit)
			},
		},
		{
			ID:        RuleAmountBand,
			Name:      "Amount band routing",
			Condition: "route to the tier of the amount band",
			Action:    ActionRoute,
			Priority:  50,
			Active:    true,
			Check: func(f Facts, b Bands) (Verdict, string) {
				return VerdictPass, fmt.Sprintf("band %s", b.TierFor(f.Amount))
			},
		},
	}
}
