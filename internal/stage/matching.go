package stage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/matching"
	domainpo "github.com/Strob0t/invoiceflow/internal/domain/purchasing"
	"github.com/Strob0t/invoiceflow/internal/port/purchasing"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
)

// Matching reconciles the invoice against its purchase order.
type Matching struct {
	info
	orders    purchasing.Book
	tolerance float64
}

// NewMatching builds the matching stage.
func NewMatching(d Deps) *Matching {
	return &Matching{
		info: info{
			id:           agent.Matching,
			name:         "PO Matching",
			capabilities: []string{"two_way_match", "three_way_match", "variance_analysis"},
		},
		orders:    d.Orders,
		tolerance: settingsOf(d).TolerancePercent,
	}
}

// Process implements stage.Stage.
func (m *Matching) Process(ctx context.Context, doc *document.Document, _ *stageport.RunContext) (*decision.Decision, error) {
	if err := m.checkForced(doc); err != nil {
		return nil, err
	}

	number := doc.Meta(document.MetaPONumber)
	var items []document.LineItem
	if doc.ExtractedData != nil {
		if doc.ExtractedData.PONumber != "" {
			number = doc.ExtractedData.PONumber
		}
		items = doc.ExtractedData.LineItems
	}

	po, err := m.findPO(ctx, number)
	if err != nil {
		return nil, err
	}

	r := matching.Match(doc.Amount(), items, po, m.tolerance)
	d := decision.New(m.id, doc.ID, matchAction(r), matchReasoning(number, r), r.Confidence, r.Outcome).
		With(decision.AttrMatchType, string(r.Type)).
		With(decision.AttrVariance, strconv.FormatFloat(r.VariancePercent, 'f', 2, 64))
	if po != nil {
		d.With(decision.AttrPONumber, po.Number)
	}
	return d, nil
}

func (m *Matching) findPO(ctx context.Context, number string) (*domainpo.PurchaseOrder, error) {
	if number == "" || m.orders == nil {
		return nil, nil
	}
	po, err := m.orders.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, stageport.Transient(fmt.Errorf("purchase order lookup: %w", err))
	}
	return po, nil
}

func matchAction(r matching.Result) string {
	switch {
	case r.Type == matching.TypeNone:
		return "no_po_found"
	case r.Confirmed:
		return "match_confirmed"
	case r.Outcome == decision.OutcomeQueuedForReview:
		return "match_exception"
	}
	return "match_rejected"
}

func matchReasoning(number string, r matching.Result) string {
	if r.Type == matching.TypeNone {
		if number == "" {
			return "No purchase order referenced on the invoice."
		}
		return fmt.Sprintf("Purchase order %s not found.", number)
	}
	matched := 0
	for _, l := range r.Lines {
		if l.Matched {
			matched++
		}
	}
	return fmt.Sprintf("%s match against PO total %.2f: invoice %.2f, variance %.2f%% (tolerance %.2f%%), %d of %d lines within tolerance.",
		r.Type, r.POTotal, r.InvoiceTotal, r.VariancePercent, r.TolerancePercent, matched, len(r.Lines))
}
