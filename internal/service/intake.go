package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/invoiceflow/internal/domain/document"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/logger"
	"github.com/Strob0t/invoiceflow/internal/port/messagequeue"
)

// DocumentProcessor runs a document through the pipeline.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc *document.Document) (*pipeline.Result, error)
}

// Intake feeds documents published by ingestion into the pipeline.
type Intake struct {
	queue     messagequeue.Queue
	processor DocumentProcessor
}

// NewIntake creates an intake consumer.
func NewIntake(queue messagequeue.Queue, processor DocumentProcessor) *Intake {
	return &Intake{queue: queue, processor: processor}
}

// Start subscribes to documents.received. The returned function stops it.
func (in *Intake) Start(ctx context.Context) (func(), error) {
	return in.queue.Subscribe(ctx, messagequeue.SubjectDocumentReceived, in.Handle)
}

// Handle processes one documents.received message. Only undecodable
// messages and unusable documents are reported as errors; run outcomes are
// published separately.
func (in *Intake) Handle(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.DocumentReceivedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	doc := p.Document
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}
	res, err := in.processor.ProcessDocument(ctx, &doc)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("intake document processed", "document_id", doc.ID, "status", res.Status)
	return nil
}
