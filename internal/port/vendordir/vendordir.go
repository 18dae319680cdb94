// Package vendordir defines the port for vendor profile lookups.
package vendordir

import (
	"context"

	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
)

// Directory resolves vendor names to profiles. Unknown vendors return
// domain.ErrNotFound.
type Directory interface {
	Lookup(ctx context.Context, name string) (*vendor.Profile, error)
}

// Writer is implemented by directories that accept profile updates.
type Writer interface {
	Upsert(ctx context.Context, p *vendor.Profile) error
}
