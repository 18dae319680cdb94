// Package matching reconciles invoices against purchase orders with a
// percentage tolerance.
package matching

import (
	"math"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
)

// DefaultTolerancePercent is the permitted variance when none is configured.
const DefaultTolerancePercent = 2.0

const epsilon = 1e-9

// Type is the kind of match performed.
type Type string

const (
	TypeNone     Type = "none"
	TypeTwoWay   Type = "2-way"
	TypeThreeWay Type = "3-way"
)

// Confidence scores.
const (
	ConfidenceThreeWay = 0.99
	ConfidenceTwoWay   = 0.92
	ConfidenceNoPO     = 0.3
)

// LineResult is the reconciliation of one invoice line.
type LineResult struct {
	Description     string  `json:"description"`
	InvoiceAmount   float64 `json:"invoice_amount"`
	POAmount        float64 `json:"po_amount"`
	Variance        float64 `json:"variance"`
	VariancePercent float64 `json:"variance_percent"`
	Matched         bool    `json:"matched"`
}

// Result is the outcome of a match.
type Result struct {
	Type             Type             `json:"type"`
	Lines            []LineResult     `json:"lines,omitempty"`
	InvoiceTotal     float64          `json:"invoice_total"`
	POTotal          float64          `json:"po_total"`
	VariancePercent  float64          `json:"variance_percent"`
	WithinTolerance  bool             `json:"within_tolerance"`
	MatchedFraction  float64          `json:"matched_fraction"`
	Confirmed        bool             `json:"confirmed"`
	Confidence       float64          `json:"confidence"`
	Outcome          decision.Outcome `json:"outcome"`
	TolerancePercent float64          `json:"tolerance_percent"`
}

// Match reconciles an invoice total and its lines against po. A nil po
// means no purchase order was found.
func Match(total float64, items []document.LineItem, po *purchasing.PurchaseOrder, tolerancePercent float64) Result {
	r := Result{InvoiceTotal: total, TolerancePercent: tolerancePercent, Type: TypeNone}
	if po == nil {
		r.Confidence = ConfidenceNoPO
		r.Outcome = decision.OutcomeBlocked
		return r
	}

	r.Type = TypeTwoWay
	if po.Received() {
		r.Type = TypeThreeWay
	}
	r.POTotal = po.Total()
	if r.POTotal > 0 {
		r.VariancePercent = math.Abs(total-r.POTotal) / r.POTotal * 100
		r.WithinTolerance = r.VariancePercent <= tolerancePercent+epsilon
	}

	r.Lines = matchLines(items, po.Lines, tolerancePercent)
	matched := 0
	for _, l := range r.Lines {
		if l.Matched {
			matched++
		}
	}
	r.MatchedFraction = 1
	if len(r.Lines) > 0 {
		r.MatchedFraction = float64(matched) / float64(len(r.Lines))
	}

	r.Confirmed = r.WithinTolerance && matched == len(r.Lines)
	switch {
	case r.Confirmed && r.Type == TypeThreeWay:
		r.Confidence = ConfidenceThreeWay
	case r.Confirmed:
		r.Confidence = ConfidenceTwoWay
	default:
		r.Confidence = 0.5 + 0.4*r.MatchedFraction
	}

	switch {
	case r.Confirmed:
		r.Outcome = decision.OutcomeExecuted
	case r.Confidence > 0.5:
		r.Outcome = decision.OutcomeQueuedForReview
	default:
		r.Outcome = decision.OutcomeBlocked
	}
	return r
}

// matchLines pairs invoice lines with PO lines by description, falling
// back to position. Each PO line is used at most once.
func matchLines(items []document.LineItem, lines []purchasing.POLine, tolerancePercent float64) []LineResult {
	used := make([]bool, len(lines))
	byDesc := make(map[string]int, len(lines))
	for i, l := range lines {
		k := strings.ToLower(strings.TrimSpace(l.Description))
		if _, dup := byDesc[k]; !dup && k != "" {
			byDesc[k] = i
		}
	}

	out := make([]LineResult, 0, len(items))
	for i, it := range items {
		amount := it.LineTotal
		if amount == 0 {
			amount = it.Quantity * it.UnitPrice
		}
		lr := LineResult{Description: it.Description, InvoiceAmount: amount}

		ref := -1
		if j, ok := byDesc[strings.ToLower(strings.TrimSpace(it.Description))]; ok && !used[j] {
			ref = j
		} else if i < len(lines) && !used[i] {
			ref = i
		}
		if ref >= 0 {
			used[ref] = true
			lr.POAmount = lines[ref].Amount
			lr.Variance = amount - lr.POAmount
			if lr.POAmount > 0 {
				lr.VariancePercent = math.Abs(lr.Variance) / lr.POAmount * 100
				lr.Matched = lr.VariancePercent <= tolerancePercent+epsilon
			}
		}
		out = append(out, lr)
	}
	return out
}
