// Package document defines the financial document that flows through the
// processing pipeline.
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain"
)

// SourceType identifies how a document entered the system.
type SourceType string

const (
	SourceEmail   SourceType = "email"
	SourceUpload  SourceType = "upload"
	SourceAPI     SourceType = "api"
	SourceNetwork SourceType = "network"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceEmail, SourceUpload, SourceAPI, SourceNetwork:
		return true
	}
	return false
}

// Metadata keys read by the decision stages.
const (
	MetaCountry            = "country"
	MetaVATID              = "vat_id"
	MetaTaxID              = "tax_id"
	MetaSenderEmail        = "sender_email"
	MetaNewVendor          = "new_vendor"
	MetaBankDetailsChanged = "bank_details_changed"
	MetaForceFailure       = "force_failure"

	// Raw fields supplied by ingestion, consumed by capture.
	MetaVendorName    = "vendor_name"
	MetaInvoiceNumber = "invoice_number"
	MetaPONumber      = "po_number"
	MetaTotalAmount   = "total_amount"
	MetaCurrency      = "currency"
	MetaInvoiceDate   = "invoice_date"
	MetaDueDate       = "due_date"
)

// Money is an amount in a currency.
type Money struct {
	Amount   float64 `json:"amount" yaml:"amount"`
	Currency string  `json:"currency" yaml:"currency"`
}

// LineItem is a single invoice line.
type LineItem struct {
	Description string  `json:"description" yaml:"description"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	UnitPrice   float64 `json:"unit_price" yaml:"unit_price"`
	LineTotal   float64 `json:"line_total" yaml:"line_total"`
}

// ExtractedData holds the fields captured from the document. Only the
// capture stage populates it.
type ExtractedData struct {
	VendorName    string     `json:"vendor_name" yaml:"vendor_name"`
	InvoiceNumber string     `json:"invoice_number" yaml:"invoice_number"`
	PONumber      string     `json:"po_number,omitempty" yaml:"po_number,omitempty"`
	Total         Money      `json:"total" yaml:"total"`
	InvoiceDate   time.Time  `json:"invoice_date" yaml:"invoice_date"`
	DueDate       time.Time  `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty" yaml:"line_items,omitempty"`
}

// Document is the unit of work of one pipeline run.
type Document struct {
	ID            string            `json:"id" yaml:"id"`
	SourceType    SourceType        `json:"source_type" yaml:"source_type"`
	Status        Status            `json:"status" yaml:"status"`
	ExtractedData *ExtractedData    `json:"extracted_data,omitempty" yaml:"extracted_data,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ReceivedAt    time.Time         `json:"received_at" yaml:"received_at"`
}

// Validate checks the fields the orchestrator relies on.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required: %w", domain.ErrValidation)
	}
	if d.SourceType != "" && !d.SourceType.Valid() {
		return fmt.Errorf("unknown source type %q: %w", d.SourceType, domain.ErrValidation)
	}
	if d.Status != "" && !d.Status.Valid() {
		return fmt.Errorf("unknown status %q: %w", d.Status, domain.ErrValidation)
	}
	return nil
}

// Meta returns a metadata value, or "" when absent.
func (d *Document) Meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// MetaBool reports whether a metadata flag is set to a truthy value.
func (d *Document) MetaBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(d.Meta(key))) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// ForcedFailure reports whether the test flag asks the given stage to fail.
func (d *Document) ForcedFailure(agentID string) bool {
	for _, id := range strings.Split(d.Meta(MetaForceFailure), ",") {
		if strings.TrimSpace(id) == agentID {
			return true
		}
	}
	return false
}

// Amount returns the extracted total amount, or 0 before capture.
func (d *Document) Amount() float64 {
	if d.ExtractedData == nil {
		return 0
	}
	return d.ExtractedData.Total.Amount
}

// VendorName returns the extracted vendor name, falling back to ingestion metadata.
func (d *Document) VendorName() string {
	if d.ExtractedData != nil && d.ExtractedData.VendorName != "" {
		return d.ExtractedData.VendorName
	}
	return d.Meta(MetaVendorName)
}
