// Package purchasing defines purchase orders and goods receipts used for
// invoice reconciliation.
package purchasing

import "time"

// POLine is one ordered line of a purchase order.
type POLine struct {
	Description string  `json:"description" yaml:"description"`
	Amount      float64 `json:"amount" yaml:"amount"`
}

// GoodsReceipt confirms delivery against a purchase order.
type GoodsReceipt struct {
	Number     string    `json:"number" yaml:"number"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
}

// PurchaseOrder is an approved order an invoice is matched against.
type PurchaseOrder struct {
	Number     string        `json:"number" yaml:"number"`
	VendorName string        `json:"vendor_name" yaml:"vendor_name"`
	Currency   string        `json:"currency" yaml:"currency"`
	Lines      []POLine      `json:"lines" yaml:"lines"`
	Receipt    *GoodsReceipt `json:"receipt,omitempty" yaml:"receipt,omitempty"`
}

// Total is the sum of the line amounts.
func (po *PurchaseOrder) Total() float64 {
	var sum float64
	for _, l := range po.Lines {
		sum += l.Amount
	}
	return sum
}

// Received reports whether a goods receipt exists.
func (po *PurchaseOrder) Received() bool {
	return po.Receipt != nil
}
