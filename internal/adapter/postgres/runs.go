package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/invoiceflow/internal/domain"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
)

// RunArchive implements runarchive.Archive. Only the latest run per
// document is kept; the full result is stored as JSONB next to a few
// queryable summary columns.
type RunArchive struct {
	pool *pgxpool.Pool
}

// NewRunArchive creates a RunArchive backed by the given pool.
func NewRunArchive(pool *pgxpool.Pool) *RunArchive {
	return &RunArchive{pool: pool}
}

// Save stores r as the latest result for its document.
func (a *RunArchive) Save(ctx context.Context, r *pipeline.Result) error {
	if r == nil || r.DocumentID == "" {
		return fmt.Errorf("run result: %w", domain.ErrValidation)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", r.DocumentID, err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO run_results (document_id, trace_id, status, halt, halted_by, result, started_at, completed_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (document_id) DO UPDATE SET
		   trace_id = EXCLUDED.trace_id, status = EXCLUDED.status, halt = EXCLUDED.halt,
		   halted_by = EXCLUDED.halted_by, result = EXCLUDED.result, started_at = EXCLUDED.started_at,
		   completed_at = EXCLUDED.completed_at, duration_ms = EXCLUDED.duration_ms`,
		r.DocumentID, r.TraceID, string(r.Status), string(r.Halt), r.HaltedBy, data,
		r.StartedAt, r.CompletedAt, r.DurationMs)
	return execErr(err, "save run %s", r.DocumentID)
}

// Latest returns the most recent result for a document.
func (a *RunArchive) Latest(ctx context.Context, documentID string) (*pipeline.Result, error) {
	var data []byte
	err := a.pool.QueryRow(ctx, `SELECT result FROM run_results WHERE document_id = $1`, documentID).Scan(&data)
	if err != nil {
		return nil, notFoundWrap(err, "run for %s", documentID)
	}
	var r pipeline.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", documentID, err)
	}
	return &r, nil
}
