package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/purchasing"
	"github.com/Strob0t/invoiceflow/internal/domain/vendor"
)

// VendorDirectory implements vendordir.Directory and vendordir.Writer.
type VendorDirectory struct {
	pool *pgxpool.Pool
}

// NewVendorDirectory creates a VendorDirectory backed by the given pool.
func NewVendorDirectory(pool *pgxpool.Pool) *VendorDirectory {
	return &VendorDirectory{pool: pool}
}

const vendorColumns = `name, domain, country, compliant, risk_rating, average_invoice, first_seen,
	gl_code, cost_center, accepts_card, discount_percent, discount_days, net_days`

func scanVendor(row scannable) (*vendor.Profile, error) {
	var (
		p         vendor.Profile
		rating    string
		firstSeen *time.Time
	)
	err := row.Scan(&p.Name, &p.Domain, &p.Country, &p.Compliant, &rating, &p.AverageInvoice, &firstSeen,
		&p.GLCode, &p.CostCenter, &p.AcceptsCard, &p.Terms.DiscountPercent, &p.Terms.DiscountDays, &p.Terms.NetDays)
	if err != nil {
		return nil, err
	}
	p.RiskRating = vendor.RiskRating(rating)
	if firstSeen != nil {
		p.FirstSeen = firstSeen.UTC()
	}
	return &p, nil
}

// Lookup finds a vendor by name, ignoring case and spacing.
func (d *VendorDirectory) Lookup(ctx context.Context, name string) (*vendor.Profile, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE key = $1`, vendor.Key(name))
	p, err := scanVendor(row)
	if err != nil {
		return nil, notFoundWrap(err, "vendor %q", name)
	}
	return p, nil
}

// Upsert adds or replaces a profile.
func (d *VendorDirectory) Upsert(ctx context.Context, p *vendor.Profile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("vendor name: %w", domain.ErrValidation)
	}
	rating := p.RiskRating
	if rating == "" {
		rating = vendor.RatingLow
	}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO vendors (key, `+vendorColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (key) DO UPDATE SET
		   name = EXCLUDED.name, domain = EXCLUDED.domain, country = EXCLUDED.country,
		   compliant = EXCLUDED.compliant, risk_rating = EXCLUDED.risk_rating,
		   average_invoice = EXCLUDED.average_invoice, first_seen = EXCLUDED.first_seen,
		   gl_code = EXCLUDED.gl_code, cost_center = EXCLUDED.cost_center,
		   accepts_card = EXCLUDED.accepts_card, discount_percent = EXCLUDED.discount_percent,
		   discount_days = EXCLUDED.discount_days, net_days = EXCLUDED.net_days`,
		vendor.Key(p.Name), p.Name, p.Domain, p.Country, p.Compliant, string(rating), p.AverageInvoice, nullTime(p.FirstSeen),
		p.GLCode, p.CostCenter, p.AcceptsCard, p.Terms.DiscountPercent, p.Terms.DiscountDays, p.Terms.NetDays)
	return execErr(err, "upsert vendor %q", p.Name)
}

// POBook implements purchasing.Book and purchasing.Writer.
type POBook struct {
	pool *pgxpool.Pool
}

// NewPOBook creates a POBook backed by the given pool.
func NewPOBook(pool *pgxpool.Pool) *POBook {
	return &POBook{pool: pool}
}

// FindByNumber finds an order by number, ignoring case.
func (b *POBook) FindByNumber(ctx context.Context, number string) (*purchasing.PurchaseOrder, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT number, vendor_name, currency, lines, COALESCE(receipt_number, ''), received_at
		 FROM purchase_orders WHERE number_key = $1`, poKey(number))

	var (
		po         purchasing.PurchaseOrder
		linesJSON  []byte
		receiptNo  string
		receivedAt *time.Time
	)
	if err := row.Scan(&po.Number, &po.VendorName, &po.Currency, &linesJSON, &receiptNo, &receivedAt); err != nil {
		return nil, notFoundWrap(err, "purchase order %q", number)
	}
	if err := json.Unmarshal(linesJSON, &po.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal po lines %s: %w", number, err)
	}
	if receiptNo != "" {
		po.Receipt = &purchasing.GoodsReceipt{Number: receiptNo}
		if receivedAt != nil {
			po.Receipt.ReceivedAt = receivedAt.UTC()
		}
	}
	return &po, nil
}

// Upsert adds or replaces an order.
func (b *POBook) Upsert(ctx context.Context, po *purchasing.PurchaseOrder) error {
	if po == nil || strings.TrimSpace(po.Number) == "" {
		return fmt.Errorf("purchase order number: %w", domain.ErrValidation)
	}
	lines := po.Lines
	if lines == nil {
		lines = []purchasing.POLine{}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal po lines: %w", err)
	}
	var (
		receiptNo  *string
		receivedAt any
	)
	if po.Receipt != nil {
		receiptNo = nullIfEmpty(po.Receipt.Number)
		receivedAt = nullTime(po.Receipt.ReceivedAt)
	}
	_, err = b.pool.Exec(ctx,
		`INSERT INTO purchase_orders (number_key, number, vendor_name, currency, lines, receipt_number, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (number_key) DO UPDATE SET
		   number = EXCLUDED.number, vendor_name = EXCLUDED.vendor_name, currency = EXCLUDED.currency,
		   lines = EXCLUDED.lines, receipt_number = EXCLUDED.receipt_number, received_at = EXCLUDED.received_at`,
		poKey(po.Number), po.Number, po.VendorName, po.Currency, linesJSON, receiptNo, receivedAt)
	return execErr(err, "upsert purchase order %s", po.Number)
}
