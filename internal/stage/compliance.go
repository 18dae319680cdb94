package stage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

// AttrVendorCompliant records whether the vendor passed compliance.
const AttrVendorCompliant = "vendor_compliant"

var (
	euVAT = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{2,12}$`)
	gbVAT = regexp.MustCompile(`^GB([0-9]{9}|[0-9]{12})$`)
	usEIN = regexp.MustCompile(`^[0-9]{2}-?[0-9]{7}$`)
	inGST = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	auABN = regexp.MustCompile(`^[0-9]{11}$`)
)

var euCountries = map[string]string{
	"AT": "AT", "BE": "BE", "BG": "BG", "CY": "CY", "CZ": "CZ", "DE": "DE", "DK": "DK",
	"EE": "EE", "ES": "ES", "FI": "FI", "FR": "FR", "GR": "EL", "HR": "HR", "HU": "HU",
	"IE": "IE", "IT": "IT", "LT": "LT", "LU": "LU", "LV": "LV", "MT": "MT", "NL": "NL",
	"PL": "PL", "PT": "PT", "RO": "RO", "SE": "SE", "SI": "SI", "SK": "SK",
}

// usTaxIDThreshold is the amount above which US vendors must supply a tax id.
const usTaxIDThreshold = 600

// Compliance runs deterministic schema and regulatory checks.
type Compliance struct {
	info
	vendors vendordir.Directory
}

// NewCompliance builds the compliance stage.
func NewCompliance(d Deps) *Compliance {
	return &Compliance{
		info: info{
			id:           agent.Compliance,
			name:         "Compliance Check",
			capabilities: []string{"schema_validation", "tax_id_validation", "vendor_compliance"},
		},
		vendors: d.Vendors,
	}
}

// Process implements stage.Stage.
func (c *Compliance) Process(ctx context.Context, doc *document.Document, _ *stageport.RunContext) (*decision.Decision, error) {
	if err := c.checkForced(doc); err != nil {
		return nil, err
	}

	failures := schemaFailures(doc.ExtractedData)
	profile, err := lookupVendor(ctx, c.vendors, doc.VendorName())
	if err != nil {
		return nil, err
	}

	country := strings.ToUpper(strings.TrimSpace(doc.Meta(document.MetaCountry)))
	if country == "" && profile != nil {
		country = strings.ToUpper(profile.Country)
	}
	failures = append(failures, countryFailures(country, doc)...)

	vendorCompliant := profile == nil || profile.Compliant
	if !vendorCompliant {
		failures = append(failures, "vendor is flagged as non-compliant")
	}

	if len(failures) > 0 {
		return decision.New(c.id, doc.ID, "compliance_failed",
			fmt.Sprintf("%d compliance check(s) failed: %s.", len(failures), strings.Join(failures, "; ")),
			1.0, decision.OutcomeBlocked).
			With(decision.AttrFailures, strings.Join(failures, "; ")).
			With(AttrVendorCompliant, fmt.Sprint(vendorCompliant)), nil
	}

	reason := "Schema complete"
	if country != "" {
		reason += ", " + country + " requirements met"
	}
	if profile == nil {
		reason += ", vendor not yet in directory"
	}
	return decision.New(c.id, doc.ID, "compliance_passed", reason+".", 1.0, decision.OutcomeExecuted).
		With(AttrVendorCompliant, "true"), nil
}

func schemaFailures(e *document.ExtractedData) []string {
	if e == nil {
		return []string{"no extracted data"}
	}
	var out []string
	if e.VendorName == "" {
		out = append(out, "vendor name missing")
	}
	if e.InvoiceNumber == "" {
		out = append(out, "invoice number missing")
	}
	if e.Total.Amount <= 0 {
		out = append(out, "total amount must be positive")
	}
	if e.Total.Currency == "" {
		out = append(out, "currency missing")
	}
	if e.InvoiceDate.IsZero() {
		out = append(out, "invoice date missing")
	}
	if !e.DueDate.IsZero() && !e.InvoiceDate.IsZero() && e.DueDate.Before(e.InvoiceDate) {
		out = append(out, "due date precedes invoice date")
	}
	return out
}

func countryFailures(country string, doc *document.Document) []string {
	vat := normalizeID(doc.Meta(document.MetaVATID))
	tax := normalizeID(doc.Meta(document.MetaTaxID))

	switch {
	case country == "":
		return nil
	case country == "GB":
		if !gbVAT.MatchString(vat) {
			return []string{"GB VAT number missing or malformed"}
		}
	case country == "US":
		if doc.Amount() > usTaxIDThreshold && !usEIN.MatchString(tax) {
			return []string{"US tax id required above 600"}
		}
	case country == "IN":
		if !inGST.MatchString(tax) {
			return []string{"IN GSTIN missing or malformed"}
		}
	case country == "AU":
		if !auABN.MatchString(tax) {
			return []string{"AU ABN missing or malformed"}
		}
	default:
		prefix, eu := euCountries[country]
		if eu && (!euVAT.MatchString(vat) || !strings.HasPrefix(vat, prefix)) {
			return []string{country + " VAT id missing or malformed"}
		}
	}
	return nil
}

func normalizeID(v string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", ".", "").Replace(strings.TrimSpace(v)))
}
