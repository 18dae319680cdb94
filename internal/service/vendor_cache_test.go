package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/invoiceflow/internal/adapter/memory"
	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	"github.com/Strob0t/invoiceflow/internal/service"
)

type countingDirectory struct {
	*memory.VendorDirectory
	lookups int
}

func (d *countingDirectory) Lookup(ctx context.Context, name string) (*vendor.Profile, error) {
	d.lookups++
	return d.VendorDirectory.Lookup(ctx, name)
}

func TestCachedVendorDirectory(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{VendorDirectory: memory.NewVendorDirectory(vendor.Profile{Name: "Acme", GLCode: "6200"})}
	c := newMemCache()
	dir := service.NewCachedVendorDirectory(inner, c, time.Minute)

	for range 3 {
		p, err := dir.Lookup(ctx, " ACME ")
		if err != nil {
			t.Fatal(err)
		}
		if p.GLCode != "6200" {
			t.Fatalf("profile %+v", p)
		}
	}
	if inner.lookups != 1 {
		t.Fatalf("inner lookups = %d", inner.lookups)
	}

	if _, err := dir.Lookup(ctx, "Nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown vendor: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "vendor:nobody"); ok {
		t.Fatal("miss was cached")
	}

	if err := dir.Upsert(ctx, &vendor.Profile{Name: "Acme", GLCode: "6300"}); err != nil {
		t.Fatal(err)
	}
	p, err := dir.Lookup(ctx, "acme")
	if err != nil || p.GLCode != "6300" {
		t.Fatalf("stale after upsert: %+v %v", p, err)
	}
}

func TestCachedVendorDirectoryDegradesWhenCacheFails(t *testing.T) {
	c := newMemCache()
	c.err = errCacheDown
	dir := service.NewCachedVendorDirectory(memory.NewVendorDirectory(vendor.Profile{Name: "Acme"}), c, time.Minute)
	if _, err := dir.Lookup(context.Background(), "Acme"); err != nil {
		t.Fatalf("lookup should bypass a failing cache: %v", err)
	}
}
