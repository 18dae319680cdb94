package stage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/scoring"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
	stageport "github.com/Strob0t/invoiceflow/internal/port/stage"
)

// Extractor reads structured invoice data from a document.
type Extractor interface {
	Extract(ctx context.Context, doc *document.Document) (*document.ExtractedData, error)
}

// MetadataExtractor uses pre-filled extracted data when present and
// otherwise reads the raw fields ingestion left in the metadata.
type MetadataExtractor struct{}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006", "01/02/2006"}

// Extract implements Extractor.
func (MetadataExtractor) Extract(_ context.Context, doc *document.Document) (*document.ExtractedData, error) {
	if doc.ExtractedData != nil {
		cp := *doc.ExtractedData
		cp.LineItems = append([]document.LineItem(nil), doc.ExtractedData.LineItems...)
		return &cp, nil
	}
	e := &document.ExtractedData{
		VendorName:    strings.TrimSpace(doc.Meta(document.MetaVendorName)),
		InvoiceNumber: strings.TrimSpace(doc.Meta(document.MetaInvoiceNumber)),
		PONumber:      strings.TrimSpace(doc.Meta(document.MetaPONumber)),
		Total:         document.Money{Currency: strings.ToUpper(strings.TrimSpace(doc.Meta(document.MetaCurrency)))},
	}
	if v := doc.Meta(document.MetaTotalAmount); v != "" {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err == nil {
			e.Total.Amount = amount
		}
	}
	e.InvoiceDate = parseDate(doc.Meta(document.MetaInvoiceDate))
	e.DueDate = parseDate(doc.Meta(document.MetaDueDate))
	return e, nil
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Capture extracts invoice data and persists the extracted record.
type Capture struct {
	info
	extractor Extractor
	scorer    scoring.Scorer
	records   recordstore.Store
	threshold float64
}

// NewCapture builds the capture stage.
func NewCapture(d Deps) *Capture {
	c := &Capture{
		info: info{
			id:           agent.Capture,
			name:         "Document Capture",
			capabilities: []string{"ocr", "field_extraction", "line_items"},
		},
		extractor: d.Extractor,
		scorer:    d.Scorer,
		records:   d.Records,
		threshold: settingsOf(d).CaptureThreshold,
	}
	if c.extractor == nil {
		c.extractor = MetadataExtractor{}
	}
	if c.scorer == nil {
		c.scorer = scoring.DefaultCompleteness()
	}
	return c
}

// Process implements stage.Stage. It is the only writer of ExtractedData.
func (c *Capture) Process(ctx context.Context, doc *document.Document, rc *stageport.RunContext) (*decision.Decision, error) {
	if err := c.checkForced(doc); err != nil {
		return nil, err
	}
	data, err := c.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	doc.ExtractedData = data

	confidence := c.scorer.Score(doc)
	present, total := scoring.HeaderFields(data)

	if c.records != nil {
		rec := recordstore.Record{
			Kind:       recordstore.KindExtracted,
			DocumentID: doc.ID,
			TraceID:    traceOf(rc),
			Fields: map[string]string{
				"vendor_name":    data.VendorName,
				"invoice_number": data.InvoiceNumber,
				"po_number":      data.PONumber,
				"total_amount":   strconv.FormatFloat(data.Total.Amount, 'f', 2, 64),
				"currency":       data.Total.Currency,
				"line_items":     strconv.Itoa(len(data.LineItems)),
				"source_type":    string(doc.SourceType),
			},
		}
		if err := c.records.UpsertByID(ctx, doc.ID, rec); err != nil {
			return nil, stageport.Transient(fmt.Errorf("persist extracted record: %w", err))
		}
	}

	reasoning := fmt.Sprintf("Extracted %d of %d header fields and %d line items from %s document; confidence %.2f.",
		present, total, len(data.LineItems), sourceLabel(doc.SourceType), confidence)

	if confidence < c.threshold {
		return decision.New(c.id, doc.ID, "extract_data_low_confidence",
			reasoning+fmt.Sprintf(" Below the %.2f threshold, needs manual verification.", c.threshold),
			confidence, decision.OutcomeQueuedForReview), nil
	}
	return decision.New(c.id, doc.ID, "extract_data", reasoning, confidence, decision.OutcomeExecuted), nil
}

func sourceLabel(s document.SourceType) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
