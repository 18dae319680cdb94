// Package recordstore defines the port for the external document record
// store. Callers always supply the key; the store never infers it.
package recordstore

import (
	"context"
	"strings"
	"time"
)

// Kind classifies a stored record.
type Kind string

const (
	KindExtracted       Kind = "extracted"
	KindPaymentSchedule Kind = "payment_schedule"
)

// Record is a persisted side effect of a stage.
type Record struct {
	Key        string            `json:"key"`
	Kind       Kind              `json:"kind"`
	DocumentID string            `json:"document_id"`
	TraceID    string            `json:"trace_id"`
	Fields     map[string]string `json:"fields"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// BusinessKey identifies a record by vendor and invoice number.
type BusinessKey struct {
	Vendor        string
	InvoiceNumber string
}

// String renders the key in its stored form.
func (k BusinessKey) String() string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	return norm(k.Vendor) + "|" + norm(k.InvoiceNumber)
}

// Valid reports whether both parts are present.
func (k BusinessKey) Valid() bool {
	return strings.TrimSpace(k.Vendor) != "" && strings.TrimSpace(k.InvoiceNumber) != ""
}

// Store is the document record store.
type Store interface {
	// UpsertByID writes rec under the pipeline document id.
	UpsertByID(ctx context.Context, id string, rec Record) error
	// UpsertByBusinessKey writes rec under an explicit business key.
	UpsertByBusinessKey(ctx context.Context, key BusinessKey, rec Record) error
	// Get returns the record stored under key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)
}
