// Package purchasing defines the port for purchase-order lookups.
package purchasing

import (
	"context"

	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
)

// Book finds purchase orders by number. Unknown numbers return
// domain.ErrNotFound.
type Book interface {
	FindByNumber(ctx context.Context, number string) (*purchasing.PurchaseOrder, error)
}

// Writer is implemented by books that accept new orders.
type Writer interface {
	Upsert(ctx context.Context, po *purchasing.PurchaseOrder) error
}
