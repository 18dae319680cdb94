package messagequeue

import (
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/document"
)

// DocumentReceivedPayload is the schema for documents.received messages.
type DocumentReceivedPayload struct {
	Document document.Document `json:"document"`
}

// DecisionPayload is the schema for pipeline.decision messages.
type DecisionPayload struct {
	DocumentID string            `json:"document_id"`
	TraceID    string            `json:"trace_id"`
	Decision   decision.Decision `json:"decision"`
}

// RunCompletedPayload is the schema for pipeline.completed messages.
type RunCompletedPayload struct {
	DocumentID    string    `json:"document_id"`
	TraceID       string    `json:"trace_id"`
	Status        string    `json:"status"`
	Halt          string    `json:"halt,omitempty"`
	DecisionCount int       `json:"decision_count"`
	ErrorCount    int       `json:"error_count"`
	DurationMs    int64     `json:"duration_ms"`
	CompletedAt   time.Time `json:"completed_at"`
}
