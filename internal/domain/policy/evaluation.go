package policy

import (
	"sort"
	"strings"
)

// RuleResult is the verdict of one evaluated rule.
type RuleResult struct {
	RuleID  string  `json:"rule_id"`
	Verdict Verdict `json:"verdict"`
	Note    string  `json:"note"`
}

// Evaluation is the outcome of running the whole table.
type Evaluation struct {
	Results      []RuleResult `json:"results"`
	Tier         Tier         `json:"tier"`
	Failed       []string     `json:"failed,omitempty"`
	Flagged      []string     `json:"flagged,omitempty"`
	Escalated    bool         `json:"escalated"`
	RiskElevated bool         `json:"risk_elevated"`
	AutoApproved bool         `json:"auto_approved"`
}

// Table is an ordered set of rules plus the amount bands they route by.
type Table struct {
	rules []Rule
	bands Bands
}

// NewTable builds a table. Rules are sorted by priority, stable on ties.
// Rules whose id appears in disabled are kept but marked inactive.
func NewTable(rules []Rule, bands Bands, disabled ...string) *Table {
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	for i := range sorted {
		if off[sorted[i].ID] {
			sorted[i].Active = false
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Table{rules: sorted, bands: bands}
}

// DefaultTable returns the preset rules with the default bands.
func DefaultTable() *Table {
	return NewTable(PresetRules(), DefaultBands())
}

// Rules returns the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Bands returns the table's amount bands.
func (t *Table) Bands() Bands {
	return t.bands
}

// Evaluate runs every active rule and picks the approval tier. Any failed
// rule escalates to the highest tier. Otherwise the amount band decides,
// and flags or elevated risk lift the auto band to the first human tier.
func (t *Table) Evaluate(f Facts) Evaluation {
	ev := Evaluation{RiskElevated: f.RiskElevated()}
	for _, r := range t.rules {
		if !r.Active || r.Check == nil {
			continue
		}
		v, note := r.Check(f, t.bands)
		ev.Results = append(ev.Results, RuleResult{RuleID: r.ID, Verdict: v, Note: note})
		switch v {
		case VerdictFail:
			ev.Failed = append(ev.Failed, r.ID)
		case VerdictFlag:
			ev.Flagged = append(ev.Flagged, r.ID)
		}
	}

	switch {
	case len(ev.Failed) > 0:
		ev.Tier = Tiers[len(Tiers)-1]
		ev.Escalated = true
	default:
		ev.Tier = t.bands.TierFor(f.Amount)
		if ev.Tier == TierAuto && (len(ev.Flagged) > 0 || ev.RiskElevated) {
			ev.Tier = TierManager
		}
	}

	ev.AutoApproved = ev.Tier == TierAuto && len(ev.Failed) == 0 && len(ev.Flagged) == 0 && !ev.RiskElevated
	return ev
}

// Summary renders failed and flagged rule ids for reasoning text.
func (ev Evaluation) Summary() string {
	var parts []string
	if len(ev.Failed) > 0 {
		parts = append(parts, "failed: "+strings.Join(ev.Failed, ", "))
	}
	if len(ev.Flagged) > 0 {
		parts = append(parts, "flagged: "+strings.Join(ev.Flagged, ", "))
	}
	if len(parts) == 0 {
		return "all policies passed"
	}
	return strings.Join(parts, "; ")
}
