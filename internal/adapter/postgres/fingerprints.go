package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/invoiceflow/internal/domain"
)

// FingerprintLedger implements fingerprint.Ledger on the invoice_fingerprints table.
type FingerprintLedger struct {
	pool *pgxpool.Pool
}

// NewFingerprintLedger creates a ledger backed by the given pool.
func NewFingerprintLedger(pool *pgxpool.Pool) *FingerprintLedger {
	return &FingerprintLedger{pool: pool}
}

// Claim takes over an expired claim in the same statement that inserts a
// new one, so concurrent runs agree on a single owner.
func (l *FingerprintLedger) Claim(ctx context.Context, fingerprint, documentID string, at, since time.Time) (string, error) {
	if fingerprint == "" || documentID == "" {
		return "", fmt.Errorf("fingerprint claim: %w", domain.ErrValidation)
	}
	var owner string
	err := l.pool.QueryRow(ctx,
		`INSERT INTO invoice_fingerprints (fingerprint, document_id, claimed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (fingerprint) DO UPDATE SET
		   document_id = EXCLUDED.document_id, claimed_at = EXCLUDED.claimed_at
		 WHERE invoice_fingerprints.claimed_at < $4
		   AND invoice_fingerprints.document_id <> EXCLUDED.document_id
		 RETURNING document_id`,
		fingerprint, documentID, at, since).Scan(&owner)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("claim fingerprint: %w", err)
	}

	// Live claim held by another document, or our own earlier claim.
	err = l.pool.QueryRow(ctx,
		`SELECT document_id FROM invoice_fingerprints WHERE fingerprint = $1`, fingerprint).Scan(&owner)
	if err != nil {
		return "", notFoundWrap(err, "fingerprint %s", fingerprint)
	}
	return owner, nil
}
