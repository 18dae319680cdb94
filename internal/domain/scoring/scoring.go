// Package scoring provides pluggable confidence models for stages whose
// confidence is an estimate rather than a rule outcome.
package scoring

import (
	"math/rand/v2"
	"sync"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
)

// Scorer estimates confidence in a stage's reading of a document.
type Scorer interface {
	Score(doc *document.Document) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(doc *document.Document) float64

// Score implements Scorer.
func (f ScorerFunc) Score(doc *document.Document) float64 { return decision.Clamp(f(doc)) }

// Fixed always returns the same score.
type Fixed float64

// Score implements Scorer.
func (f Fixed) Score(*document.Document) float64 { return decision.Clamp(float64(f)) }

// Completeness scores extracted data by the share of header fields present.
// A complete record scores Base+Span.
type Completeness struct {
	Base float64
	Span float64
}

// DefaultCompleteness scores between 0.5 and 0.98.
func DefaultCompleteness() Completeness {
	return Completeness{Base: 0.5, Span: 0.48}
}

// Score implements Scorer.
func (c Completeness) Score(doc *document.Document) float64 {
	if doc == nil || doc.ExtractedData == nil {
		return decision.Clamp(c.Base)
	}
	present, total := HeaderFields(doc.ExtractedData)
	return decision.Clamp(c.Base + c.Span*float64(present)/float64(total))
}

// HeaderFields counts the populated header fields of extracted data.
func HeaderFields(e *document.ExtractedData) (present, total int) {
	checks := []bool{
		e.VendorName != "",
		e.InvoiceNumber != "",
		e.Total.Amount > 0,
		e.Total.Currency != "",
		!e.InvoiceDate.IsZero(),
	}
	for _, ok := range checks {
		if ok {
			present++
		}
	}
	return present, len(checks)
}

// Seeded draws scores uniformly from [Min, Max) with a fixed seed, for
// demos and load simulation. Safe for concurrent use.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
	min float64
	max float64
}

// NewSeeded returns a seeded scorer over [lo, hi).
func NewSeeded(seed uint64, lo, hi float64) *Seeded {
	if hi < lo {
		lo, hi = hi, lo
	}
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), min: lo, max: hi}
}

// Score implements Scorer.
func (s *Seeded) Score(*document.Document) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decision.Clamp(s.min + s.rng.Float64()*(s.max-s.min))
}
