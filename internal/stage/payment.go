package stage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

// Payment methods.
const (
	MethodVirtualCard = "virtual_card"
	MethodACH         = "ach"
)

const dateLayout = "2006-01-02"

// Payment schedules approved invoices for payment.
type Payment struct {
	info
	vendors  vendordir.Directory
	records  recordstore.Store
	settings Settings
	now      func() time.Time
}

// NewPayment builds the payment stage.
func NewPayment(d Deps) *Payment {
	return &Payment{
		info: info{
			id:           agent.Payment,
			name:         "Payment Scheduling",
			capabilities: []string{"discount_capture", "payment_method_selection", "scheduling"},
		},
		vendors:  d.Vendors,
		records:  d.Records,
		settings: settingsOf(d),
		now:      clockOrNow(d.Clock),
	}
}

// Process implements stage.Stage.
func (p *Payment) Process(ctx context.Context, doc *document.Document, rc *stageport.RunContext) (*decision.Decision, error) {
	if err := p.checkForced(doc); err != nil {
		return nil, err
	}

	ap, ok := rc.Latest(agent.Approval)
	if !ok || ap.Action != ActionAutoApproved || ap.Outcome != decision.OutcomeExecuted {
		tier := ap.Attr(decision.AttrApprovalTier)
		if tier == "" {
			tier = "unknown"
		}
		return decision.New(p.id, doc.ID, "payment_pending_approval",
			fmt.Sprintf("Payment held until %s approval is granted.", tier),
			0.9, decision.OutcomeQueuedForReview), nil
	}

	profile, err := lookupVendor(ctx, p.vendors, doc.VendorName())
	if err != nil {
		return nil, err
	}
	sched := p.schedule(doc, profile)

	if p.records != nil {
		if err := p.persist(ctx, doc, traceOf(rc), sched); err != nil {
			return nil, stageport.Transient(fmt.Errorf("persist payment schedule: %w", err))
		}
	}

	action := "schedule_standard_terms"
	reason := fmt.Sprintf("Pay %.2f by %s on %s.", doc.Amount(), sched.method, sched.date.Format(dateLayout))
	if sched.discount > 0 {
		action = "schedule_discount_capture"
		reason += fmt.Sprintf(" Early payment captures a %.2f discount.", sched.discount)
	}
	if sched.rebate > 0 {
		reason += fmt.Sprintf(" Card rebate %.2f.", sched.rebate)
	}
	return decision.New(p.id, doc.ID, action, reason, 0.95, decision.OutcomeExecuted).
		With(decision.AttrPaymentMethod, sched.method).
		With(decision.AttrPaymentDate, sched.date.Format(dateLayout)).
		With(decision.AttrDiscountAmount, money(sched.discount)).
		With(decision.AttrRebateAmount, money(sched.rebate)), nil
}

type schedule struct {
	method   string
	date     time.Time
	discount float64
	rebate   float64
}

func (p *Payment) schedule(doc *document.Document, v *vendor.Profile) schedule {
	now := p.now().UTC().Truncate(24 * time.Hour)
	amount := doc.Amount()
	base := now
	var due time.Time
	if e := doc.ExtractedData; e != nil {
		if !e.InvoiceDate.IsZero() {
			base = e.InvoiceDate
		}
		due = e.DueDate
	}

	terms := vendor.Terms{NetDays: p.settings.DefaultNetDays}
	if v != nil {
		terms = v.Terms
		if terms.NetDays <= 0 {
			terms.NetDays = p.settings.DefaultNetDays
		}
	}

	var s schedule
	if cutoff := base.AddDate(0, 0, terms.DiscountDays); terms.HasDiscount() && !now.After(cutoff) {
		s.date = cutoff
		s.discount = amount * terms.DiscountPercent / 100
	} else {
		s.date = due
		if s.date.IsZero() {
			s.date = base.AddDate(0, 0, terms.NetDays)
		}
		if s.date.Before(now) {
			s.date = now
		}
	}

	s.method = MethodACH
	if v != nil && v.AcceptsCard && amount <= p.settings.CardLimit {
		s.method = MethodVirtualCard
		s.rebate = amount * p.settings.CardRebatePct / 100
	}
	return s
}

func (p *Payment) persist(ctx context.Context, doc *document.Document, traceID string, s schedule) error {
	rec := recordstore.Record{
		Kind:       recordstore.KindPaymentSchedule,
		DocumentID: doc.ID,
		TraceID:    traceID,
		Fields: map[string]string{
			"amount":          money(doc.Amount()),
			"payment_method":  s.method,
			"payment_date":    s.date.Format(dateLayout),
			"discount_amount": money(s.discount),
			"rebate_amount":   money(s.rebate),
		},
	}
	key := recordstore.BusinessKey{Vendor: doc.VendorName()}
	if doc.ExtractedData != nil {
		key.InvoiceNumber = doc.ExtractedData.InvoiceNumber
	}
	if key.Valid() {
		return p.records.UpsertByBusinessKey(ctx, key, rec)
	}
	return p.records.UpsertByID(ctx, doc.ID, rec)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
