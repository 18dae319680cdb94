package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

// AttrSpendCategory carries the spend category chosen by classification.
const AttrSpendCategory = "spend_category"

// Uncategorized GL code.
const GLUncategorized = "9999"

type glPattern struct {
	keywords   []string
	glCode     string
	category   string
	costCenter string
}

var glPatterns = []glPattern{
	{[]string{"software", "saas", "cloud", "license", "subscription"}, "6200", "software", "IT"},
	{[]string{"consult", "advisory", "legal", "audit", "accounting"}, "6300", "professional_services", "FIN"},
	{[]string{"office", "supplies", "paper", "stationery"}, "6400", "office_supplies", "ADM"},
	{[]string{"travel", "hotel", "airline", "flight"}, "6500", "travel", "ADM"},
	{[]string{"freight", "shipping", "logistics", "courier"}, "5100", "freight", "OPS"},
	{[]string{"utility", "electric", "power", "water", "energy"}, "6600", "utilities", "FAC"},
	{[]string{"hardware", "equipment", "computer", "laptop", "server"}, "1500", "equipment", "IT"},
	{[]string{"marketing", "advertising", "media", "print"}, "6700", "marketing", "MKT"},
}

// Classification assigns a GL code and cost center.
type Classification struct {
	info
	vendors   vendordir.Directory
	threshold float64
}

// NewClassification builds the classification stage.
func NewClassification(d Deps) *Classification {
	return &Classification{
		info: info{
			id:           agent.Classification,
			name:         "GL Classification",
			capabilities: []string{"gl_coding", "cost_center_assignment"},
		},
		vendors:   d.Vendors,
		threshold: settingsOf(d).ClassificationThreshold,
	}
}

// Process implements stage.Stage.
func (c *Classification) Process(ctx context.Context, doc *document.Document, _ *stageport.RunContext) (*decision.Decision, error) {
	if err := c.checkForced(doc); err != nil {
		return nil, err
	}

	name := doc.VendorName()
	profile, err := lookupVendor(ctx, c.vendors, name)
	if err != nil {
		return nil, err
	}

	var (
		gl, category, center, source string
		confidence                   float64
	)
	switch {
	case profile != nil && profile.GLCode != "":
		gl, center, source, confidence = profile.GLCode, profile.CostCenter, "vendor directory", 0.95
		category = categoryFor(gl)
	default:
		if p, ok := matchPattern(name); ok {
			gl, category, center, source, confidence = p.glCode, p.category, p.costCenter, "vendor name pattern", 0.85
		} else if p, ok := matchPattern(lineText(doc)); ok {
			gl, category, center, source, confidence = p.glCode, p.category, p.costCenter, "line item pattern", 0.75
		} else {
			gl, category, source, confidence = GLUncategorized, "uncategorized", "no match", 0.4
		}
	}

	reasoning := fmt.Sprintf("Assigned GL %s (%s) from %s.", gl, category, source)
	out := decision.OutcomeExecuted
	action := "gl_coded"
	if confidence < c.threshold {
		out = decision.OutcomeQueuedForReview
		action = "gl_code_review"
		reasoning += " Confidence too low for automatic coding."
	}
	return decision.New(c.id, doc.ID, action, reasoning, confidence, out).
		With(decision.AttrGLCode, gl).
		With(decision.AttrCostCenter, center).
		With(AttrSpendCategory, category), nil
}

func matchPattern(text string) (glPattern, bool) {
	text = strings.ToLower(text)
	if text == "" {
		return glPattern{}, false
	}
	for _, p := range glPatterns {
		for _, k := range p.keywords {
			if strings.Contains(text, k) {
				return p, true
			}
		}
	}
	return glPattern{}, false
}

func categoryFor(gl string) string {
	for _, p := range glPatterns {
		if p.glCode == gl {
			return p.category
		}
	}
	return "vendor_assigned"
}

func lineText(doc *document.Document) string {
	if doc.ExtractedData == nil {
		return ""
	}
	parts := make([]string, 0, len(doc.ExtractedData.LineItems))
	for _, l := range doc.ExtractedData.LineItems {
		parts = append(parts, l.Description)
	}
	return strings.Join(parts, " ")
}
