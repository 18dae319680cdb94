package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Ledger implements fingerprint.Ledger on a KV bucket shared by all
// instances. The bucket TTL must equal the duplicate window: expiry is what
// releases a claim, so the at and since arguments are not consulted.
type Ledger struct {
	kv jetstream.KeyValue
}

// NewLedger creates a ledger over an existing bucket.
func NewLedger(kv jetstream.KeyValue) *Ledger {
	return &Ledger{kv: kv}
}

// Claim creates the key if absent; otherwise the stored owner wins.
func (l *Ledger) Claim(ctx context.Context, fingerprint, documentID string, _, _ time.Time) (string, error) {
	key := encodeKey(fingerprint)
	for range 2 {
		if _, err := l.kv.Create(ctx, key, []byte(documentID)); err == nil {
			return documentID, nil
		} else if !errors.Is(err, jetstream.ErrKeyExists) {
			return "", fmt.Errorf("claim fingerprint: %w", err)
		}

		entry, err := l.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue // expired between Create and Get
		}
		if err != nil {
			return "", fmt.Errorf("read fingerprint owner: %w", err)
		}
		return string(entry.Value()), nil
	}
	return "", fmt.Errorf("claim fingerprint %s: key kept expiring", fingerprint)
}
