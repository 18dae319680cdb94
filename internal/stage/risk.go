package stage

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/risk"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

// Risk decision attributes beyond the shared ones.
const (
	AttrRecommendation = "recommendation"
	AttrNewVendor      = "new_vendor"
	AttrSignals        = "signals"
)

// newVendorPeriod is how long after first contact a vendor counts as new.
const newVendorPeriod = 90 * 24 * time.Hour

// Risk scores fraud and anomaly signals into one composite figure.
type Risk struct {
	info
	vendors    vendordir.Directory
	duplicates DuplicateIndex
	velocity   VelocityCounter
	settings   Settings
	now        func() time.Time
}

// NewRisk builds the risk stage.
func NewRisk(d Deps) *Risk {
	return &Risk{
		info: info{
			id:           agent.Risk,
			name:         "Risk Assessment",
			capabilities: []string{"duplicate_detection", "anomaly_detection", "fraud_patterns", "velocity_checks"},
		},
		vendors:    d.Vendors,
		duplicates: d.Duplicates,
		velocity:   d.Velocity,
		settings:   settingsOf(d),
		now:        clockOrNow(d.Clock),
	}
}

// Process implements stage.Stage.
func (r *Risk) Process(ctx context.Context, doc *document.Document, _ *stageport.RunContext) (*decision.Decision, error) {
	if err := r.checkForced(doc); err != nil {
		return nil, err
	}

	profile, err := lookupVendor(ctx, r.vendors, doc.VendorName())
	if err != nil {
		return nil, err
	}

	dup, err := r.duplicateSignal(ctx, doc)
	if err != nil {
		return nil, err
	}
	vel, err := r.velocitySignal(ctx, doc)
	if err != nil {
		return nil, err
	}
	signals := []risk.Signal{
		dup,
		r.amountSignal(doc, profile),
		patternSignal(doc, profile),
		vel,
		vendorSignal(profile),
	}

	composite := risk.Composite(signals)
	level := risk.LevelFor(composite)
	rec := level.Recommendation()
	newVendor := r.isNewVendor(doc, profile)

	var raised []string
	for _, s := range signals {
		if s.Score > 0 {
			raised = append(raised, fmt.Sprintf("%s=%.0f", s.Category, s.Score))
		}
	}
	reasoning := fmt.Sprintf("Composite risk %.1f (%s), recommendation %s.", composite, level, rec)
	if len(raised) > 0 {
		reasoning += " Signals: " + strings.Join(raised, ", ") + "."
	}

	return decision.New(r.id, doc.ID, "risk_assessed", reasoning, risk.Confidence(composite), rec.Outcome()).
		With(decision.AttrRiskLevel, string(level)).
		With(decision.AttrRiskScore, strconv.FormatFloat(composite, 'f', 1, 64)).
		With(AttrRecommendation, string(rec)).
		With(AttrNewVendor, strconv.FormatBool(newVendor)).
		With(AttrSignals, strings.Join(raised, ",")), nil
}

// Fingerprint identifies an invoice for duplicate detection.
func Fingerprint(doc *document.Document) string {
	e := doc.ExtractedData
	if e == nil || e.InvoiceNumber == "" || doc.VendorName() == "" {
		return ""
	}
	return vendor.Key(doc.VendorName()) + "|" + strings.ToLower(strings.TrimSpace(e.InvoiceNumber)) + "|" +
		strconv.FormatFloat(e.Total.Amount, 'f', 2, 64)
}

func (r *Risk) duplicateSignal(ctx context.Context, doc *document.Document) (risk.Signal, error) {
	fp := Fingerprint(doc)
	if fp == "" || r.duplicates == nil {
		return risk.NewSignal(risk.CategoryDuplicate, 0, "no fingerprint"), nil
	}
	first, dup, err := r.duplicates.CheckAndRecord(ctx, fp, doc.ID)
	if err != nil {
		return risk.Signal{}, stageport.Transient(fmt.Errorf("duplicate index: %w", err))
	}
	if dup {
		return risk.NewSignal(risk.CategoryDuplicate, 95, "same vendor, invoice number and amount as document "+first), nil
	}
	return risk.NewSignal(risk.CategoryDuplicate, 0, "no duplicate"), nil
}

func (r *Risk) amountSignal(doc *document.Document, p *vendor.Profile) risk.Signal {
	amount := doc.Amount()
	if p == nil || p.AverageInvoice <= 0 {
		if amount >= r.settings.LargeAmount {
			return risk.NewSignal(risk.CategoryAmountAnomaly, 30, "large amount without vendor history")
		}
		return risk.NewSignal(risk.CategoryAmountAnomaly, 0, "no vendor history")
	}
	ratio := amount / p.AverageInvoice
	switch {
	case ratio > 3:
		return risk.NewSignal(risk.CategoryAmountAnomaly, 70, fmt.Sprintf("amount is %.1fx the vendor average", ratio))
	case ratio > 2:
		return risk.NewSignal(risk.CategoryAmountAnomaly, 45, fmt.Sprintf("amount is %.1fx the vendor average", ratio))
	}
	return risk.NewSignal(risk.CategoryAmountAnomaly, 0, "amount in line with history")
}

func patternSignal(doc *document.Document, p *vendor.Profile) risk.Signal {
	score, note := 0.0, "no suspicious pattern"
	raise := func(s float64, n string) {
		if s > score {
			score, note = s, n
		}
	}
	if doc.MetaBool(document.MetaBankDetailsChanged) {
		raise(75, "bank details changed")
	}
	if p != nil && p.Domain != "" {
		if d := vendor.EmailDomain(doc.Meta(document.MetaSenderEmail)); d != "" && d != strings.ToLower(p.Domain) {
			raise(40, "sender domain "+d+" does not match vendor domain")
		}
	}
	if doc.ExtractedData == nil || doc.ExtractedData.InvoiceNumber == "" {
		raise(40, "invoice number missing")
	}
	if a := doc.Amount(); a >= 1000 && math.Mod(a, 1000) == 0 {
		raise(15, "round amount")
	}
	return risk.NewSignal(risk.CategorySuspiciousPattern, score, note)
}

func (r *Risk) velocitySignal(ctx context.Context, doc *document.Document) (risk.Signal, error) {
	name := doc.VendorName()
	if name == "" || r.velocity == nil {
		return risk.NewSignal(risk.CategoryVelocity, 0, "velocity not tracked"), nil
	}
	n, err := r.velocity.Observe(ctx, vendor.Key(name), doc.ID, r.now())
	if err != nil {
		return risk.Signal{}, stageport.Transient(fmt.Errorf("velocity: %w", err))
	}
	desc := fmt.Sprintf("%d documents from vendor in window", n)
	switch {
	case n > r.settings.VelocityHigh:
		return risk.NewSignal(risk.CategoryVelocity, 70, desc), nil
	case n > r.settings.VelocityMedium:
		return risk.NewSignal(risk.CategoryVelocity, 40, desc), nil
	}
	return risk.NewSignal(risk.CategoryVelocity, 0, desc), nil
}

func vendorSignal(p *vendor.Profile) risk.Signal {
	switch {
	case p == nil:
		return risk.NewSignal(risk.CategoryVendorRisk, 50, "vendor unknown")
	case p.RiskRating == vendor.RatingHigh:
		return risk.NewSignal(risk.CategoryVendorRisk, 70, "vendor rated high risk")
	case p.RiskRating == vendor.RatingMedium:
		return risk.NewSignal(risk.CategoryVendorRisk, 35, "vendor rated medium risk")
	}
	return risk.NewSignal(risk.CategoryVendorRisk, 0, "vendor rated low risk")
}

func (r *Risk) isNewVendor(doc *document.Document, p *vendor.Profile) bool {
	if doc.MetaBool(document.MetaNewVendor) || p == nil {
		return true
	}
	return !p.FirstSeen.IsZero() && r.now().Sub(p.FirstSeen) < newVendorPeriod
}
