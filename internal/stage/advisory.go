package stage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
)

// Advisory decision attributes.
const (
	AttrSavings  = "savings_total"
	AttrCashFlow = "cash_flow"
)

// Advisory produces non-blocking spend and cash-flow insights.
type Advisory struct {
	info
	now func() time.Time
}

// NewAdvisory builds the advisory stage.
func NewAdvisory(d Deps) *Advisory {
	return &Advisory{
		info: info{
			id:           agent.Advisory,
			name:         "Spend Advisory",
			capabilities: []string{"savings_estimate", "spend_analysis", "cash_flow_forecast"},
		},
		now: clockOrNow(d.Clock),
	}
}

// Process implements stage.Stage. The outcome is always executed.
func (a *Advisory) Process(_ context.Context, doc *document.Document, rc *stageport.RunContext) (*decision.Decision, error) {
	if err := a.checkForced(doc); err != nil {
		return nil, err
	}

	var savings float64
	cashFlow := "unscheduled"
	if p, ok := rc.Latest(agent.Payment); ok {
		savings = attrFloat(p, decision.AttrDiscountAmount) + attrFloat(p, decision.AttrRebateAmount)
		if date, err := time.Parse(dateLayout, p.Attr(decision.AttrPaymentDate)); err == nil {
			days := int(date.Sub(a.now().UTC().Truncate(24*time.Hour)).Hours() / 24)
			cashFlow = fmt.Sprintf("outflow of %.2f in %d days", doc.Amount(), days)
		}
	}

	category := "uncategorized"
	if c, ok := rc.Latest(agent.Classification); ok {
		if v := c.Attr(AttrSpendCategory); v != "" {
			category = v
		}
	}

	reason := fmt.Sprintf("Spend category %s; estimated savings %.2f; cash flow %s.", category, savings, cashFlow)
	if savings == 0 {
		reason += " Consider negotiating early-payment terms or card acceptance with this vendor."
	}
	return decision.New(a.id, doc.ID, "spend_insights", reason, 0.8, decision.OutcomeExecuted).
		With(AttrSavings, money(savings)).
		With(AttrSpendCategory, category).
		With(AttrCashFlow, cashFlow), nil
}

func attrFloat(d decision.Decision, key string) float64 {
	v, err := strconv.ParseFloat(d.Attr(key), 64)
	if err != nil {
		return 0
	}
	return v
}
