package risk

import (
	"math"
	"testing"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{0, SeverityLow}, {24.9, SeverityLow}, {25, SeverityMedium},
		{49.9, SeverityMedium}, {50, SeverityHigh}, {79.9, SeverityHigh},
		{80, SeverityCritical}, {100, SeverityCritical},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.score); got != tt.want {
			t.Errorf("SeverityFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestComposite(t *testing.T) {
	tests := []struct {
		name    string
		signals []Signal
		want    float64
	}{
		{"none", nil, 0},
		{"zero scores ignored", []Signal{NewSignal(CategoryVelocity, 0, "")}, 0},
		{"single medium", []Signal{NewSignal(CategoryVendorRisk, 40, "")}, 40},
		// (40*1 + 70*2) / 3 = 60
		{"weighted", []Signal{NewSignal(CategoryVendorRisk, 40, ""), NewSignal(CategoryAmountAnomaly, 70, "")}, 60},
		// mean (95*3 + 10*0.5 + 40*1) / 4.5 = 73.33, floored at 95
		{"critical floor", []Signal{
			NewSignal(CategoryDuplicate, 95, ""),
			NewSignal(CategoryVelocity, 10, ""),
			NewSignal(CategoryVendorRisk, 40, ""),
		}, 95},
		// mean (80*3 + 70*2 + 30*1) / 6 = 68.33 (high), floored at 80
		{"critical floor over weighted high", []Signal{
			NewSignal(CategoryDuplicate, 80, ""),
			NewSignal(CategoryAmountAnomaly, 70, ""),
			NewSignal(CategorySuspiciousPattern, 30, ""),
		}, 80},
		{"capped", []Signal{NewSignal(CategoryDuplicate, 250, "")}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Composite(tt.signals); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Composite = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompositeCriticalFloorLevel(t *testing.T) {
	signals := []Signal{
		NewSignal(CategoryDuplicate, 80, ""),
		NewSignal(CategoryAmountAnomaly, 70, ""),
		NewSignal(CategorySuspiciousPattern, 30, ""),
	}
	if signals[0].Severity != SeverityCritical || signals[1].Severity != SeverityHigh || signals[2].Severity != SeverityMedium {
		t.Fatalf("severities = %s %s %s", signals[0].Severity, signals[1].Severity, signals[2].Severity)
	}
	got := Composite(signals)
	if lvl := LevelFor(got); lvl != LevelCritical {
		t.Fatalf("level = %s for composite %.2f, want critical", lvl, got)
	}
	if rec := LevelFor(got).Recommendation(); rec.Outcome() != decision.OutcomeBlocked {
		t.Fatalf("recommendation %s does not block", rec)
	}
}

// Adding a critical signal never lowers the composite score.
func TestComposite_MonotonicInCriticalSignals(t *testing.T) {
	base := [][]Signal{
		nil,
		{NewSignal(CategoryVendorRisk, 10, "")},
		{NewSignal(CategoryVendorRisk, 35, ""), NewSignal(CategoryVelocity, 70, "")},
		{NewSignal(CategoryDuplicate, 99, ""), NewSignal(CategoryAmountAnomaly, 79, "")},
		{NewSignal(CategoryDuplicate, 100, ""), NewSignal(CategorySuspiciousPattern, 100, "")},
	}
	for i, signals := range base {
		before := Composite(signals)
		for c := 80.0; c <= 100; c += 2.5 {
			after := Composite(append(append([]Signal{}, signals...), NewSignal(CategoryDuplicate, c, "")))
			if after+1e-9 < before {
				t.Fatalf("case %d: adding critical %.1f lowered composite %.3f -> %.3f", i, c, before, after)
			}
		}
	}
}

func TestLevelRecommendationOutcome(t *testing.T) {
	tests := []struct {
		score float64
		level Level
		rec   Recommendation
		out   decision.Outcome
	}{
		{10, LevelLow, RecommendApprove, decision.OutcomeExecuted},
		{30, LevelMedium, RecommendReview, decision.OutcomeQueuedForReview},
		{60, LevelHigh, RecommendEscalate, decision.OutcomeQueuedForReview},
		{85, LevelCritical, RecommendBlock, decision.OutcomeBlocked},
	}
	for _, tt := range tests {
		l := LevelFor(tt.score)
		if l != tt.level || l.Recommendation() != tt.rec || l.Recommendation().Outcome() != tt.out {
			t.Errorf("score %v: got %s/%s/%s", tt.score, l, l.Recommendation(), l.Recommendation().Outcome())
		}
	}
}

func TestConfidence(t *testing.T) {
	if Confidence(0) != 1 || Confidence(100) != 0 || math.Abs(Confidence(25)-0.75) > 1e-9 {
		t.Fatal("unexpected confidence values")
	}
}
