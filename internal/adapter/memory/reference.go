package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
)

// VendorDirectory implements vendordir.Directory and vendordir.Writer.
type VendorDirectory struct {
	mu       sync.RWMutex
	profiles map[string]vendor.Profile
}

// NewVendorDirectory returns a directory seeded with profiles.
func NewVendorDirectory(profiles ...vendor.Profile) *VendorDirectory {
	d := &VendorDirectory{profiles: make(map[string]vendor.Profile)}
	for _, p := range profiles {
		d.profiles[vendor.Key(p.Name)] = p
	}
	return d
}

// Lookup finds a vendor by name, ignoring case and spacing.
func (d *VendorDirectory) Lookup(_ context.Context, name string) (*vendor.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[vendor.Key(name)]
	if !ok {
		return nil, fmt.Errorf("vendor %q: %w", name, domain.ErrNotFound)
	}
	return &p, nil
}

// Upsert adds or replaces a profile.
func (d *VendorDirectory) Upsert(_ context.Context, p *vendor.Profile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("vendor name: %w", domain.ErrValidation)
	}
	d.mu.Lock()
	d.profiles[vendor.Key(p.Name)] = *p
	d.mu.Unlock()
	return nil
}

// POBook implements the purchasing Book and Writer ports.
type POBook struct {
	mu     sync.RWMutex
	orders map[string]purchasing.PurchaseOrder
}

// NewPOBook returns a book seeded with orders.
func NewPOBook(orders ...purchasing.PurchaseOrder) *POBook {
	b := &POBook{orders: make(map[string]purchasing.PurchaseOrder)}
	for _, o := range orders {
		b.orders[poKey(o.Number)] = o
	}
	return b
}

// FindByNumber finds an order by number, ignoring case.
func (b *POBook) FindByNumber(_ context.Context, number string) (*purchasing.PurchaseOrder, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[poKey(number)]
	if !ok {
		return nil, fmt.Errorf("purchase order %q: %w", number, domain.ErrNotFound)
	}
	return &o, nil
}

// Upsert adds or replaces an order.
func (b *POBook) Upsert(_ context.Context, po *purchasing.PurchaseOrder) error {
	if po == nil || strings.TrimSpace(po.Number) == "" {
		return fmt.Errorf("purchase order number: %w", domain.ErrValidation)
	}
	b.mu.Lock()
	b.orders[poKey(po.Number)] = *po
	b.mu.Unlock()
	return nil
}

func poKey(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

// RunArchive implements runarchive.Archive in memory.
type RunArchive struct {
	mu      sync.RWMutex
	results map[string]pipeline.Result
}

// NewRunArchive returns an empty archive.
func NewRunArchive() *RunArchive {
	return &RunArchive{results: make(map[string]pipeline.Result)}
}

// Save stores the result as the latest for its document.
func (a *RunArchive) Save(_ context.Context, r *pipeline.Result) error {
	if r == nil || r.DocumentID == "" {
		return fmt.Errorf("run result: %w", domain.ErrValidation)
	}
	a.mu.Lock()
	a.results[r.DocumentID] = *r
	a.mu.Unlock()
	return nil
}

// Latest returns the most recent result for a document.
func (a *RunArchive) Latest(_ context.Context, documentID string) (*pipeline.Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.results[documentID]
	if !ok {
		return nil, fmt.Errorf("run for %s: %w", documentID, domain.ErrNotFound)
	}
	return &r, nil
}
