package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/invoiceflow/internal/adapter/postgres"
	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
)

// setupPool connects to DATABASE_URL, runs all migrations and returns the
// pool. The pool is closed via t.Cleanup.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := config.Defaults().Postgres
	cfg.DSN = dsn
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestRecordStore(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	s := postgres.NewRecordStore(pool)

	suffix := uuid.NewString()
	key := recordstore.BusinessKey{Vendor: "Acme " + suffix, InvoiceNumber: "INV-1"}
	rec := recordstore.Record{Kind: recordstore.KindPaymentSchedule, DocumentID: "doc-1", Fields: map[string]string{"amount": "10.00"}}
	if err := s.UpsertByBusinessKey(ctx, key, rec); err != nil {
		t.Fatal(err)
	}
	rec.Fields["amount"] = "12.00"
	if err := s.UpsertByBusinessKey(ctx, key, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, key.String())
	if err != nil {
		t.Fatal(err)
	}
	if got.Fields["amount"] != "12.00" || got.Kind != recordstore.KindPaymentSchedule {
		t.Fatalf("record %+v", got)
	}

	if err := s.UpsertByBusinessKey(ctx, recordstore.BusinessKey{Vendor: "x"}, rec); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("invalid key: %v", err)
	}
	if _, err := s.Get(ctx, "missing-"+suffix); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing record: %v", err)
	}
}

func TestVendorDirectory(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	d := postgres.NewVendorDirectory(pool)

	name := "Northwind " + uuid.NewString()
	p := &vendor.Profile{
		Name: name, Country: "US", Compliant: true, RiskRating: vendor.RatingMedium,
		AverageInvoice: 1200, FirstSeen: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		GLCode: "6400", AcceptsCard: true, Terms: vendor.Terms{DiscountPercent: 2, DiscountDays: 10, NetDays: 30},
	}
	if err := d.Upsert(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := d.Lookup(ctx, "  "+name)
	if err != nil {
		t.Fatal(err)
	}
	if got.GLCode != "6400" || !got.Terms.HasDiscount() || !got.FirstSeen.Equal(p.FirstSeen) || got.RiskRating != vendor.RatingMedium {
		t.Fatalf("profile %+v", got)
	}
	if _, err := d.Lookup(ctx, "nobody "+uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown vendor: %v", err)
	}
}

func TestPOBook(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	b := postgres.NewPOBook(pool)

	number := "po-" + uuid.NewString()
	po := &purchasing.PurchaseOrder{
		Number: number, VendorName: "Acme", Currency: "USD",
		Lines:   []purchasing.POLine{{Description: "License", Amount: 400}},
		Receipt: &purchasing.GoodsReceipt{Number: "GR-1", ReceivedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	if err := b.Upsert(ctx, po); err != nil {
		t.Fatal(err)
	}
	got, err := b.FindByNumber(ctx, number)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total() != 400 || !got.Received() {
		t.Fatalf("order %+v", got)
	}
}

func TestRunArchive(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	a := postgres.NewRunArchive(pool)

	docID := "doc-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	first := &pipeline.Result{DocumentID: docID, TraceID: "t1", Status: pipeline.StatusBlocked, StartedAt: now, CompletedAt: now}
	second := &pipeline.Result{
		DocumentID: docID, TraceID: "t2", Status: pipeline.StatusCompleted, StartedAt: now, CompletedAt: now,
		Decisions: []decision.Decision{*decision.New("capture", docID, "extracted", "", 0.9, decision.OutcomeExecuted)},
	}
	for _, r := range []*pipeline.Result{first, second} {
		if err := a.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := a.Latest(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TraceID != "t2" || len(got.Decisions) != 1 {
		t.Fatalf("latest %+v", got)
	}
}

func TestFingerprintLedger(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	l := postgres.NewFingerprintLedger(pool)

	fp := "fp-" + uuid.NewString()
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	owner, err := l.Claim(ctx, fp, "doc-a", t0, t0.Add(-time.Hour))
	if err != nil || owner != "doc-a" {
		t.Fatalf("first claim = %s, %v", owner, err)
	}
	owner, err = l.Claim(ctx, fp, "doc-b", t0.Add(20*time.Minute), t0.Add(-40*time.Minute))
	if err != nil || owner != "doc-a" {
		t.Fatalf("claim inside window = %s, %v", owner, err)
	}
	owner, err = l.Claim(ctx, fp, "doc-c", t0.Add(2*time.Hour), t0.Add(time.Hour))
	if err != nil || owner != "doc-c" {
		t.Fatalf("claim after window = %s, %v", owner, err)
	}
}

func TestMigrationVersion(t *testing.T) {
	setupPool(t)
	v, err := postgres.MigrationVersion(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		t.Fatal(err)
	}
	if v < 1 {
		t.Fatalf("version = %d", v)
	}
}
