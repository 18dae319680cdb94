package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	"github.com/Strob0t/invoiceflow/internal/port/cache"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

const vendorKeyPrefix = "vendor:"

// CachedVendorDirectory is a read-through cache in front of a vendor directory.
type CachedVendorDirectory struct {
	inner vendordir.Directory
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedVendorDirectory wraps inner with c.
func NewCachedVendorDirectory(inner vendordir.Directory, c cache.Cache, ttl time.Duration) *CachedVendorDirectory {
	return &CachedVendorDirectory{inner: inner, cache: c, ttl: ttl}
}

// Lookup serves from the cache, falling back to the directory. Unknown
// vendors are not cached.
func (d *CachedVendorDirectory) Lookup(ctx context.Context, name string) (*vendor.Profile, error) {
	key := vendorKeyPrefix + vendor.Key(name)
	p, ok, err := cache.GetJSON[vendor.Profile](ctx, d.cache, key)
	if err != nil {
		slog.Warn("vendor cache read failed", "vendor", name, "error", err)
	}
	if ok {
		return &p, nil
	}

	prof, err := d.inner.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, d.cache, key, prof, d.ttl); err != nil {
		slog.Warn("vendor cache write failed", "vendor", name, "error", err)
	}
	return prof, nil
}

// Upsert writes through to the directory and drops the cached entry.
func (d *CachedVendorDirectory) Upsert(ctx context.Context, p *vendor.Profile) error {
	w, ok := d.inner.(vendordir.Writer)
	if !ok {
		return fmt.Errorf("vendor directory is read-only: %w", domain.ErrConflict)
	}
	if err := w.Upsert(ctx, p); err != nil {
		return err
	}
	if err := d.cache.Delete(ctx, vendorKeyPrefix+vendor.Key(p.Name)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("vendor cache invalidate failed", "vendor", p.Name, "error", err)
	}
	return nil
}
