package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain"
)

// FingerprintLedger implements fingerprint.Ledger in memory.
type FingerprintLedger struct {
	mu     sync.Mutex
	claims map[string]claim
}

type claim struct {
	documentID string
	at         time.Time
}

// NewFingerprintLedger returns an empty ledger.
func NewFingerprintLedger() *FingerprintLedger {
	return &FingerprintLedger{claims: make(map[string]claim)}
}

// Claim implements fingerprint.Ledger.
func (l *FingerprintLedger) Claim(_ context.Context, fingerprint, documentID string, at, since time.Time) (string, error) {
	if fingerprint == "" || documentID == "" {
		return "", fmt.Errorf("fingerprint claim: %w", domain.ErrValidation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.claims[fingerprint]; ok && (c.documentID == documentID || !c.at.Before(since)) {
		return c.documentID, nil
	}
	l.claims[fingerprint] = claim{documentID: documentID, at: at}
	return documentID, nil
}
