// Package fingerprint defines the ledger that remembers invoice
// fingerprints for duplicate detection.
package fingerprint

import (
	"context"
	"time"
)

// Ledger records which document first presented a fingerprint.
type Ledger interface {
	// Claim makes documentID the owner of fingerprint unless a different
	// document claimed it at or after since, and returns the owner.
	// A document re-claiming its own fingerprint keeps the original claim.
	Claim(ctx context.Context, fingerprint, documentID string, at, since time.Time) (owner string, err error)
}
