package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/invoiceflow/internal/port/fingerprint"
)

// DuplicateIndex remembers invoice fingerprints for the duplicate window.
// The ledger decides ownership, so instances sharing a ledger agree on it.
type DuplicateIndex struct {
	ledger fingerprint.Ledger
	window time.Duration
	now    func() time.Time
}

// NewDuplicateIndex creates an index that treats a fingerprint as taken for
// window after its first claim.
func NewDuplicateIndex(ledger fingerprint.Ledger, window time.Duration) *DuplicateIndex {
	return &DuplicateIndex{ledger: ledger, window: window, now: time.Now}
}

// CheckAndRecord returns the first document seen with fingerprint when it
// differs from documentID; otherwise it records documentID as the owner.
func (x *DuplicateIndex) CheckAndRecord(ctx context.Context, fp, documentID string) (string, bool, error) {
	at := x.now()
	owner, err := x.ledger.Claim(ctx, fp, documentID, at, at.Add(-x.window))
	if err != nil {
		return "", false, fmt.Errorf("duplicate check: %w", err)
	}
	return owner, owner != documentID, nil
}

// VelocityTracker counts submissions per vendor inside a sliding window.
type VelocityTracker struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string][]sighting
}

type sighting struct {
	documentID string
	at         time.Time
}

// NewVelocityTracker creates a tracker with the given window.
func NewVelocityTracker(window time.Duration) *VelocityTracker {
	return &VelocityTracker{window: window, seen: make(map[string][]sighting)}
}

// Observe records a submission and returns the number of distinct documents
// from the vendor inside the window ending at at.
func (v *VelocityTracker) Observe(_ context.Context, vendorKey, documentID string, at time.Time) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := at.Add(-v.window)
	kept := v.seen[vendorKey][:0]
	known := false
	for _, s := range v.seen[vendorKey] {
		if s.at.Before(cutoff) {
			continue
		}
		if s.documentID == documentID {
			known = true
		}
		kept = append(kept, s)
	}
	if !known {
		kept = append(kept, sighting{documentID: documentID, at: at})
	}
	v.seen[vendorKey] = kept
	return len(kept), nil
}
