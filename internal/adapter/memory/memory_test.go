package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
)

func TestRecordStore(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()

	fields := map[string]string{"vendor_name": "Acme"}
	if err := s.UpsertByID(ctx, "doc-1", recordstore.Record{Kind: recordstore.KindExtracted, Fields: fields}); err != nil {
		t.Fatal(err)
	}
	fields["vendor_name"] = "mutated"

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != "doc-1" || got.Fields["vendor_name"] != "Acme" || got.UpdatedAt.IsZero() {
		t.Fatalf("unexpected record: %+v", got)
	}

	key := recordstore.BusinessKey{Vendor: "Acme", InvoiceNumber: "INV-1"}
	if err := s.UpsertByBusinessKey(ctx, key, recordstore.Record{Kind: recordstore.KindPaymentSchedule}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertByBusinessKey(ctx, key, recordstore.Record{Kind: recordstore.KindPaymentSchedule}); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected upsert to replace, Len = %d", s.Len())
	}

	if err := s.UpsertByBusinessKey(ctx, recordstore.BusinessKey{Vendor: "Acme"}, recordstore.Record{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := s.UpsertByID(ctx, "", recordstore.Record{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVendorDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewVendorDirectory(vendor.Profile{Name: "Acme Corp", GLCode: "6100"})

	p, err := d.Lookup(ctx, "  acme   CORP")
	if err != nil || p.GLCode != "6100" {
		t.Fatalf("Lookup = %+v, %v", p, err)
	}
	if _, err := d.Lookup(ctx, "Globex"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := d.Upsert(ctx, &vendor.Profile{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPOBook(t *testing.T) {
	ctx := context.Background()
	b := NewPOBook(purchasing.PurchaseOrder{Number: "PO-100", Lines: []purchasing.POLine{{Amount: 5}}})
	po, err := b.FindByNumber(ctx, " po-100 ")
	if err != nil || po.Total() != 5 {
		t.Fatalf("FindByNumber = %+v, %v", po, err)
	}
	if _, err := b.FindByNumber(ctx, "PO-404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunArchive(t *testing.T) {
	ctx := context.Background()
	a := NewRunArchive()
	if err := a.Save(ctx, &pipeline.Result{DocumentID: "d1", Status: pipeline.StatusBlocked}); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, &pipeline.Result{DocumentID: "d1", Status: pipeline.StatusCompleted}); err != nil {
		t.Fatal(err)
	}
	r, err := a.Latest(ctx, "d1")
	if err != nil || r.Status != pipeline.StatusCompleted {
		t.Fatalf("Latest = %+v, %v", r, err)
	}
	if _, err := a.Latest(ctx, "d2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFingerprintLedger(t *testing.T) {
	ctx := context.Background()
	l := NewFingerprintLedger()
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		doc   string
		at    time.Time
		since time.Time
		want  string
	}{
		{"first claim", "d1", t0, t0.Add(-time.Hour), "d1"},
		{"other document inside window", "d2", t0.Add(30 * time.Minute), t0.Add(-30 * time.Minute), "d1"},
		{"owner reclaims", "d1", t0.Add(time.Hour), t0, "d1"},
		{"claim expired", "d3", t0.Add(3 * time.Hour), t0.Add(time.Hour), "d3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Claim(ctx, "acme|7|10.00", tt.doc, tt.at, tt.since)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("owner = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := l.Claim(ctx, "", "d1", t0, t0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLoadAndSeedFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	content := `vendors:
  - name: Acme Corp
    compliant: true
    risk_rating: low
    gl_code: "6100"
    terms: {discount_percent: 2, discount_days: 10, net_days: 30}
purchase_orders:
  - number: PO-1
    vendor_name: Acme Corp
    lines:
      - {description: Widgets, amount: 400}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFixtures(path)
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}

	ctx := context.Background()
	dir, book := NewVendorDirectory(), NewPOBook()
	if err := f.Seed(ctx, dir, book); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	p, err := dir.Lookup(ctx, "Acme Corp")
	if err != nil || !p.Terms.HasDiscount() || p.GLCode != "6100" {
		t.Fatalf("seeded vendor = %+v, %v", p, err)
	}
	if po, err := book.FindByNumber(ctx, "PO-1"); err != nil || po.Total() != 400 {
		t.Fatalf("seeded po = %+v, %v", po, err)
	}
}
