package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/logger"
	"github.com/Strob0t/invoiceflow/internal/port/notifier"
)

const notifyTimeout = 15 * time.Second

// NotificationService turns finished runs and outbound vendor messages into
// notifications and delivers them off the run's critical path.
type NotificationService struct {
	notifiers     []notifier.Notifier
	enabledEvents map[string]bool
	wg            sync.WaitGroup
}

// NewNotificationService creates a NotificationService with the given notifiers
// and enabled sources (see the notifier.Source constants).
// If enabledEvents is empty, all sources are enabled.
func NewNotificationService(notifiers []notifier.Notifier, enabledEvents []string) *NotificationService {
	enabled := make(map[string]bool, len(enabledEvents))
	for _, e := range enabledEvents {
		enabled[e] = true
	}
	return &NotificationService{notifiers: notifiers, enabledEvents: enabled}
}

// Attach registers the service's hooks on o.
func (s *NotificationService) Attach(o *Orchestrator) {
	o.AddOnDecision(s.OnDecision)
	o.AddOnRunComplete(s.OnRunComplete)
}

// OnDecision sends the vendor message of an auto-send communication decision.
func (s *NotificationService) OnDecision(ctx context.Context, d decision.Decision) error {
	if n, ok := vendorMessage(d); ok {
		s.dispatch(ctx, n)
	}
	return nil
}

// OnRunComplete alerts the AP team about runs that need a human.
func (s *NotificationService) OnRunComplete(ctx context.Context, r *pipeline.Result) error {
	if n, ok := runAlert(r); ok {
		s.dispatch(ctx, n)
	}
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// NotifierCount returns the number of configured notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}

func (s *NotificationService) dispatch(ctx context.Context, n notifier.Notification) {
	if len(s.notifiers) == 0 || (len(s.enabledEvents) > 0 && !s.enabledEvents[n.Source]) {
		return
	}
	// Delivery outlives the run's deadline but keeps its trace id.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.wg.Go(func() {
		defer cancel()
		s.Notify(dctx, n)
	})
}

// Notify sends n to every notifier able to deliver it.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	log := logger.FromContext(ctx)
	for _, provider := range s.notifiers {
		if n.Recipient != "" && !provider.Capabilities().Direct {
			continue
		}
		err := provider.Send(ctx, n)
		switch {
		case errors.Is(err, notifier.ErrNotConfigured):
			log.Debug("notifier not configured", "provider", provider.Name(), "source", n.Source)
		case err != nil:
			log.Warn("notification send failed",
				"provider", provider.Name(),
				"source", n.Source,
				"document_id", n.DocumentID,
				"error", err,
			)
		default:
			log.Debug("notification sent", "provider", provider.Name(), "source", n.Source, "document_id", n.DocumentID)
		}
	}
}

func vendorMessage(d decision.Decision) (notifier.Notification, bool) {
	if d.AgentID != agent.Communication || d.Outcome != decision.OutcomeExecuted || d.Attr(decision.AttrAutoSend) != "true" {
		return notifier.Notification{}, false
	}
	recipient := d.Attr(decision.AttrRecipient)
	if recipient == "" {
		return notifier.Notification{}, false
	}
	return notifier.Notification{
		Title:      templateTitle(d.Attr(decision.AttrTemplate)),
		Message:    d.Reasoning,
		Level:      "info",
		Source:     notifier.SourceVendorMessage,
		DocumentID: d.DocumentID,
		TraceID:    d.TraceID,
		Recipient:  recipient,
	}, true
}

func runAlert(r *pipeline.Result) (notifier.Notification, bool) {
	n := notifier.Notification{DocumentID: r.DocumentID, TraceID: r.TraceID}
	switch r.Status {
	case pipeline.StatusBlocked:
		n.Source, n.Level = notifier.SourceRunBlocked, "error"
		n.Title = "Invoice " + r.DocumentID + " blocked"
		n.Message = reasonsFor(r, decision.OutcomeBlocked)
	case pipeline.StatusFailed:
		n.Source, n.Level = notifier.SourceRunFailed, "error"
		n.Title = "Invoice " + r.DocumentID + " failed processing"
		msgs := make([]string, 0, len(r.Errors))
		for _, e := range r.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.AgentID, e.Message))
		}
		n.Message = strings.Join(msgs, "\n")
	case pipeline.StatusReviewRequired:
		n.Source, n.Level = notifier.SourceRunReview, "warning"
		n.Title = "Invoice " + r.DocumentID + " needs review"
		n.Message = reasonsFor(r, decision.OutcomeQueuedForReview)
	default:
		return notifier.Notification{}, false
	}
	return n, true
}

func reasonsFor(r *pipeline.Result, outcome decision.Outcome) string {
	var lines []string
	for _, d := range r.Decisions {
		if d.Outcome == outcome {
			lines = append(lines, fmt.Sprintf("%s (%s): %s", d.AgentID, d.Action, d.Reasoning))
		}
	}
	return strings.Join(lines, "\n")
}

func templateTitle(template string) string {
	if template == "" {
		return "Invoice update"
	}
	words := strings.Split(template, "_")
	for i, w := range words {
		if i == 0 && w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
