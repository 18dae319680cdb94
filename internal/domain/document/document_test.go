package document

import (
	"errors"
	"testing"

	"github.com/Strob0t/invoiceflow/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"valid", Document{ID: "d1", SourceType: SourceEmail, Status: StatusReceived}, false},
		{"missing fields allowed", Document{ID: "d1"}, false},
		{"missing id", Document{SourceType: SourceAPI}, true},
		{"bad source", Document{ID: "d1", SourceType: "fax"}, true},
		{"bad status", Document{ID: "d1", Status: "archived"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestForcedFailure(t *testing.T) {
	d := &Document{Metadata: map[string]string{MetaForceFailure: "risk, payment"}}
	if !d.ForcedFailure("risk") || !d.ForcedFailure("payment") {
		t.Fatal("expected risk and payment to be forced to fail")
	}
	if d.ForcedFailure("matching") {
		t.Fatal("matching must not be forced to fail")
	}
	if (&Document{}).ForcedFailure("risk") {
		t.Fatal("nil metadata must not force failures")
	}
}

func TestMetaBool(t *testing.T) {
	d := &Document{Metadata: map[string]string{"a": "TRUE", "b": "no", "c": "1"}}
	if !d.MetaBool("a") || d.MetaBool("b") || !d.MetaBool("c") || d.MetaBool("missing") {
		t.Fatal("unexpected MetaBool results")
	}
}

func TestVendorNameFallback(t *testing.T) {
	d := &Document{Metadata: map[string]string{MetaVendorName: "Acme"}}
	if d.VendorName() != "Acme" {
		t.Fatalf("expected metadata fallback, got %q", d.VendorName())
	}
	d.ExtractedData = &ExtractedData{VendorName: "Acme Corp"}
	if d.VendorName() != "Acme Corp" {
		t.Fatalf("expected extracted name, got %q", d.VendorName())
	}
	if d.Amount() != 0 {
		t.Fatalf("expected zero amount, got %v", d.Amount())
	}
}
