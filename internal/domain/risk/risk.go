// Package risk implements composite risk scoring over independent signals.
package risk

import (
	"math"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
)

// Category names a risk signal check.
type Category string

const (
	CategoryDuplicate         Category = "duplicate"
	CategoryAmountAnomaly     Category = "amount_anomaly"
	CategorySuspiciousPattern Category = "suspicious_pattern"
	CategoryVelocity          Category = "velocity"
	CategoryVendorRisk        Category = "vendor_risk"
)

// Severity grades a single signal.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weights used for the composite average.
var Weights = map[Severity]float64{
	SeverityCritical: 3,
	SeverityHigh:     2,
	SeverityMedium:   1,
	SeverityLow:      0.5,
}

// Signal is the result of one check.
type Signal struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Score       float64  `json:"score"`
	Description string   `json:"description"`
}

// NewSignal builds a signal with the score clamped to [0, 100] and the
// severity derived from its band.
func NewSignal(c Category, score float64, description string) Signal {
	score = math.Max(0, math.Min(100, score))
	return Signal{Category: c, Severity: SeverityFor(score), Score: score, Description: description}
}

// SeverityFor maps a score onto a severity band.
func SeverityFor(score float64) Severity {
	switch {
	case score < 25:
		return SeverityLow
	case score < 50:
		return SeverityMedium
	case score < 80:
		return SeverityHigh
	}
	return SeverityCritical
}

// Composite is the severity-weighted mean of all signals with a positive
// score, floored at the highest critical score and capped at 100.
func Composite(signals []Signal) float64 {
	var sum, weights, critical float64
	for _, s := range signals {
		if s.Score <= 0 {
			continue
		}
		w := Weights[s.Severity]
		sum += s.Score * w
		weights += w
		if s.Severity == SeverityCritical {
			critical = math.Max(critical, s.Score)
		}
	}
	if weights == 0 {
		return 0
	}
	return math.Min(100, math.Max(sum/weights, critical))
}

// Level is the overall risk classification of a document.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelFor maps a composite score onto a level.
func LevelFor(score float64) Level {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMedium
	case score < 80:
		return LevelHigh
	}
	return LevelCritical
}

// Recommendation is the suggested handling for a level.
type Recommendation string

const (
	RecommendApprove  Recommendation = "approve"
	RecommendReview   Recommendation = "review"
	RecommendEscalate Recommendation = "escalate"
	RecommendBlock    Recommendation = "block"
)

// Recommendation returns the handling suggested for the level.
func (l Level) Recommendation() Recommendation {
	switch l {
	case LevelLow:
		return RecommendApprove
	case LevelMedium:
		return RecommendReview
	case LevelHigh:
		return RecommendEscalate
	}
	return RecommendBlock
}

// Outcome maps a recommendation onto a decision outcome.
func (r Recommendation) Outcome() decision.Outcome {
	switch r {
	case RecommendApprove:
		return decision.OutcomeExecuted
	case RecommendBlock:
		return decision.OutcomeBlocked
	}
	return decision.OutcomeQueuedForReview
}

// Confidence reports confidence in the approve direction for a composite score.
func Confidence(composite float64) float64 {
	return decision.Clamp(1 - composite/100)
}
