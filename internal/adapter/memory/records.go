// Package memory provides in-process implementations of the storage ports
// for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
)

// RecordStore implements recordstore.Store in memory.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]recordstore.Record
}

// NewRecordStore returns an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]recordstore.Record)}
}

// UpsertByID stores rec under the document id.
func (s *RecordStore) UpsertByID(_ context.Context, id string, rec recordstore.Record) error {
	if id == "" {
		return fmt.Errorf("record id: %w", domain.ErrValidation)
	}
	s.put(id, rec)
	return nil
}

// UpsertByBusinessKey stores rec under the rendered business key.
func (s *RecordStore) UpsertByBusinessKey(_ context.Context, key recordstore.BusinessKey, rec recordstore.Record) error {
	if !key.Valid() {
		return fmt.Errorf("business key %q: %w", key.String(), domain.ErrValidation)
	}
	s.put(key.String(), rec)
	return nil
}

// Get returns the record stored under key.
func (s *RecordStore) Get(_ context.Context, key string) (*recordstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", key, domain.ErrNotFound)
	}
	return &rec, nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *RecordStore) put(key string, rec recordstore.Record) {
	rec.Key = key
	rec.UpdatedAt = time.Now().UTC()
	fields := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	rec.Fields = fields

	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()
}
