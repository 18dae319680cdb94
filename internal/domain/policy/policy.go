// Package policy defines the approval policy table: ordered approval tiers,
// amount bands and prioritized rules that each evaluate themselves.
package policy

import "github.com/Strob0t/invoiceflow/internal/domain/risk"

// Tier is a named approval level.
type Tier string

const (
	TierAuto     Tier = "auto"
	TierManager  Tier = "manager"
	TierDirector Tier = "director"
	TierVP       Tier = "vp"
	TierCFO      Tier = "cfo"
)

// Tiers lists approval levels from lowest to highest.
var Tiers = []Tier{TierAuto, TierManager, TierDirector, TierVP, TierCFO}

// Rank returns the position of t in Tiers, or -1.
func (t Tier) Rank() int {
	for i, x := range Tiers {
		if x == t {
			return i
		}
	}
	return -1
}

// Verdict is the result of one rule.
type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictFlag          Verdict = "flag"
	VerdictNotApplicable Verdict = "n/a"
)

// ActionClass is what a rule does when it triggers.
type ActionClass string

const (
	ActionAutoApprove ActionClass = "auto_approve"
	ActionRoute       ActionClass = "route"
	ActionBlock       ActionClass = "block"
	ActionFlag        ActionClass = "flag"
)

// Facts are the inputs a rule sees: the document amount and what earlier
// stages concluded about the vendor and the risk.
type Facts struct {
	Amount          float64
	ComplianceKnown bool
	VendorCompliant bool
	NewVendor       bool
	RiskKnown       bool
	RiskLevel       risk.Level
}

// RiskElevated reports whether risk is anything but a known low level.
func (f Facts) RiskElevated() bool {
	return !f.RiskKnown || f.RiskLevel != risk.LevelLow
}

// Check evaluates a rule against the facts and returns a short note.
type Check func(f Facts, b Bands) (Verdict, string)

// Rule is one entry of the policy table.
type Rule struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Condition string      `json:"condition" yaml:"condition"`
	Action    ActionClass `json:"action" yaml:"action"`
	Priority  int         `json:"priority" yaml:"priority"`
	Active    bool        `json:"active" yaml:"active"`
	Check     Check       `json:"-" yaml:"-"`
}
