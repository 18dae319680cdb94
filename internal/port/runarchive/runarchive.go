// Package runarchive defines the port for storing finished run results.
package runarchive

import (
	"context"

	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
)

// Archive keeps the latest result per document.
type Archive interface {
	Save(ctx context.Context, r *pipeline.Result) error
	// Latest returns the most recent result for a document, or domain.ErrNotFound.
	Latest(ctx context.Context, documentID string) (*pipeline.Result, error)
}
