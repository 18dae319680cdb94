package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/port/broadcast"
	"github.com/Strob0t/invoiceflow/internal/port/messagequeue"
	"github.com/Strob0t/invoiceflow/internal/port/runarchive"
)

// EventPublisher fans pipeline events out to the message queue and to live
// clients. Either side may be nil.
type EventPublisher struct {
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewEventPublisher creates a publisher.
func NewEventPublisher(queue messagequeue.Queue, hub broadcast.Broadcaster) *EventPublisher {
	return &EventPublisher{queue: queue, hub: hub}
}

// Attach registers the publisher's hooks on o.
func (p *EventPublisher) Attach(o *Orchestrator) {
	o.AddOnDecision(p.PublishDecision)
	o.AddOnRunComplete(p.PublishRun)
	o.AddOnAgentStatus(p.BroadcastStatus)
}

// PublishDecision emits one decision.
func (p *EventPublisher) PublishDecision(ctx context.Context, d decision.Decision) error {
	payload := messagequeue.DecisionPayload{DocumentID: d.DocumentID, TraceID: d.TraceID, Decision: d}
	if p.hub != nil {
		p.hub.BroadcastEvent(ctx, broadcast.EventDecision, payload)
	}
	return p.publish(ctx, messagequeue.SubjectDecision, payload)
}

// PublishRun emits the summary of a finished run.
func (p *EventPublisher) PublishRun(ctx context.Context, r *pipeline.Result) error {
	payload := messagequeue.RunCompletedPayload{
		DocumentID:    r.DocumentID,
		TraceID:       r.TraceID,
		Status:        string(r.Status),
		Halt:          string(r.Halt),
		DecisionCount: len(r.Decisions),
		ErrorCount:    len(r.Errors),
		DurationMs:    r.DurationMs,
		CompletedAt:   r.CompletedAt,
	}
	if p.hub != nil {
		p.hub.BroadcastEvent(ctx, broadcast.EventRunCompleted, payload)
	}
	return p.publish(ctx, messagequeue.SubjectRunCompleted, payload)
}

// BroadcastStatus pushes a stage status change to live clients.
func (p *EventPublisher) BroadcastStatus(ctx context.Context, s agent.Status) {
	if p.hub != nil {
		p.hub.BroadcastEvent(ctx, broadcast.EventAgentStatus, s)
	}
}

func (p *EventPublisher) publish(ctx context.Context, subject string, payload any) error {
	if p.queue == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return p.queue.Publish(ctx, subject, data)
}

// ArchiveRuns returns a hook that stores every finished run.
func ArchiveRuns(a runarchive.Archive) RunHook {
	return func(ctx context.Context, r *pipeline.Result) error {
		if err := a.Save(ctx, r); err != nil {
			return fmt.Errorf("archive run %s: %w", r.DocumentID, err)
		}
		return nil
	}
}
