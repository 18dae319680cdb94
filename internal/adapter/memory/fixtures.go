package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
	pport "github.com/Strob0t/invoiceflow/internal/port/purchasing"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
)

// Fixtures is reference data loaded from YAML: vendor profiles and open
// purchase orders.
type Fixtures struct {
	Vendors        []vendor.Profile           `yaml:"vendors"`
	PurchaseOrders []purchasing.PurchaseOrder `yaml:"purchase_orders"`
}

// LoadFixtures reads a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Seed writes the fixtures into the given stores.
func (f *Fixtures) Seed(ctx context.Context, vendors vendordir.Writer, orders pport.Writer) error {
	for i := range f.Vendors {
		if err := vendors.Upsert(ctx, &f.Vendors[i]); err != nil {
			return fmt.Errorf("seed vendor %q: %w", f.Vendors[i].Name, err)
		}
	}
	for i := range f.PurchaseOrders {
		if err := orders.Upsert(ctx, &f.PurchaseOrders[i]); err != nil {
			return fmt.Errorf("seed purchase order %q: %w", f.PurchaseOrders[i].Number, err)
		}
	}
	return nil
}
