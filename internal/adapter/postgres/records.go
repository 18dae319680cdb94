package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
)

// RecordStore implements recordstore.Store using PostgreSQL.
type RecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore creates a RecordStore backed by the given pool.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// UpsertByID writes rec under the document id.
func (s *RecordStore) UpsertByID(ctx context.Context, id string, rec recordstore.Record) error {
	if id == "" {
		return fmt.Errorf("record id: %w", domain.ErrValidation)
	}
	return s.put(ctx, id, rec)
}

// UpsertByBusinessKey writes rec under the rendered business key.
func (s *RecordStore) UpsertByBusinessKey(ctx context.Context, key recordstore.BusinessKey, rec recordstore.Record) error {
	if !key.Valid() {
		return fmt.Errorf("business key %q: %w", key.String(), domain.ErrValidation)
	}
	return s.put(ctx, key.String(), rec)
}

func (s *RecordStore) put(ctx context.Context, key string, rec recordstore.Record) error {
	fields := rec.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal record fields: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO records (key, kind, document_id, trace_id, fields, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (key) DO UPDATE SET
		   kind = EXCLUDED.kind, document_id = EXCLUDED.document_id, trace_id = EXCLUDED.trace_id,
		   fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`,
		key, string(rec.Kind), rec.DocumentID, rec.TraceID, fieldsJSON, time.Now().UTC())
	return execErr(err, "upsert record %s", key)
}

// Get returns the record stored under key.
func (s *RecordStore) Get(ctx context.Context, key string) (*recordstore.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT key, kind, document_id, trace_id, fields, updated_at FROM records WHERE key = $1`, key)

	var (
		rec        recordstore.Record
		kind       string
		fieldsJSON []byte
	)
	if err := row.Scan(&rec.Key, &kind, &rec.DocumentID, &rec.TraceID, &fieldsJSON, &rec.UpdatedAt); err != nil {
		return nil, notFoundWrap(err, "get record %s", key)
	}
	rec.Kind = recordstore.Kind(kind)
	if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal record fields %s: %w", key, err)
	}
	return &rec, nil
}
