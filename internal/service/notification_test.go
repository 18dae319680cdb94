package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Strob0t/invoiceflow/internal/domain/agent"
	"github.com/Strob0t/invoiceflow/internal/domain/decision"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/port/notifier"
)

// mockNotifier implements notifier.Notifier for testing.
type mockNotifier struct {
	name    string
	direct  bool
	sendErr error

	mu   sync.Mutex
	sent []notifier.Notification
}

func (m *mockNotifier) Name() string { return m.name }
func (m *mockNotifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{Direct: m.direct}
}
func (m *mockNotifier) Send(_ context.Context, n notifier.Notification) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) notifications() []notifier.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notifier.Notification(nil), m.sent...)
}

func TestNotificationService_Notify(t *testing.T) {
	chat := &mockNotifier{name: "chat"}
	mail := &mockNotifier{name: "mail", direct: true}
	broken := &mockNotifier{name: "broken", sendErr: errors.New("smtp down")}
	svc := NewNotificationService([]notifier.Notifier{broken, chat, mail}, nil)

	svc.Notify(context.Background(), notifier.Notification{Title: "alert", Source: notifier.SourceRunBlocked})
	if len(chat.notifications()) != 1 || len(mail.notifications()) != 1 {
		t.Fatal("team alert should reach every notifier despite one failing")
	}

	svc.Notify(context.Background(), notifier.Notification{Title: "msg", Recipient: "v@example.com"})
	if len(chat.notifications()) != 1 {
		t.Fatal("addressed message must not be posted to a channel notifier")
	}
	if len(mail.notifications()) != 2 {
		t.Fatal("addressed message should reach the direct notifier")
	}
}

func TestNotificationService_OnRunComplete(t *testing.T) {
	tests := []struct {
		name       string
		result     pipeline.Result
		wantSource string
	}{
		{
			name: "blocked",
			result: pipeline.Result{DocumentID: "d1", Status: pipeline.StatusBlocked, Decisions: []decision.Decision{
				{AgentID: agent.Risk, Action: "block_payment", Reasoning: "duplicate", Outcome: decision.OutcomeBlocked},
			}},
			wantSource: notifier.SourceRunBlocked,
		},
		{
			name: "failed",
			result: pipeline.Result{DocumentID: "d2", Status: pipeline.StatusFailed, Errors: []pipeline.PipelineError{
				{AgentID: agent.Capture, Message: "timeout"},
			}},
			wantSource: notifier.SourceRunFailed,
		},
		{
			name:       "review",
			result:     pipeline.Result{DocumentID: "d3", Status: pipeline.StatusReviewRequired},
			wantSource: notifier.SourceRunReview,
		},
		{
			name:   "completed is silent",
			result: pipeline.Result{DocumentID: "d4", Status: pipeline.StatusCompleted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockNotifier{name: "chat"}
			svc := NewNotificationService([]notifier.Notifier{m}, nil)
			if err := svc.OnRunComplete(context.Background(), &tt.result); err != nil {
				t.Fatal(err)
			}
			svc.Wait()

			got := m.notifications()
			if tt.wantSource == "" {
				if len(got) != 0 {
					t.Fatalf("expected no notification, got %+v", got)
				}
				return
			}
			if len(got) != 1 || got[0].Source != tt.wantSource || got[0].DocumentID != tt.result.DocumentID {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestNotificationService_BlockedMessageListsReasons(t *testing.T) {
	m := &mockNotifier{name: "chat"}
	svc := NewNotificationService([]notifier.Notifier{m}, nil)
	_ = svc.OnRunComplete(context.Background(), &pipeline.Result{
		DocumentID: "d1",
		Status:     pipeline.StatusBlocked,
		Decisions: []decision.Decision{
			{AgentID: agent.Capture, Action: "extract", Outcome: decision.OutcomeExecuted},
			{AgentID: agent.Compliance, Action: "block_invoice", Reasoning: "sanctioned", Outcome: decision.OutcomeBlocked},
		},
	})
	svc.Wait()

	got := m.notifications()
	if len(got) != 1 || got[0].Message != "compliance (block_invoice): sanctioned" {
		t.Fatalf("got %+v", got)
	}
}

func TestNotificationService_OnDecision(t *testing.T) {
	mail := &mockNotifier{name: "mail", direct: true}
	svc := NewNotificationService([]notifier.Notifier{mail}, nil)

	send := decision.New(agent.Communication, "d1", "send_remittance_advice", "Sending remittance.", 0.9, decision.OutcomeExecuted).
		With(decision.AttrTemplate, "remittance_advice").
		With(decision.AttrRecipient, "billing@vendor.example").
		With(decision.AttrAutoSend, "true")
	draft := decision.New(agent.Communication, "d1", "draft_dispute_response", "Drafted.", 0.7, decision.OutcomeQueuedForReview).
		With(decision.AttrAutoSend, "false")
	other := decision.New(agent.Payment, "d1", "schedule_ach", "ok", 0.9, decision.OutcomeExecuted)

	for _, d := range []*decision.Decision{send, draft, other} {
		if err := svc.OnDecision(context.Background(), *d); err != nil {
			t.Fatal(err)
		}
	}
	svc.Wait()

	got := mail.notifications()
	if len(got) != 1 {
		t.Fatalf("expected 1 vendor message, got %d", len(got))
	}
	if got[0].Recipient != "billing@vendor.example" || got[0].Title != "Remittance advice" || got[0].Source != notifier.SourceVendorMessage {
		t.Fatalf("got %+v", got[0])
	}
}

func TestNotificationService_FilterEvents(t *testing.T) {
	m := &mockNotifier{name: "chat"}
	svc := NewNotificationService([]notifier.Notifier{m}, []string{notifier.SourceRunFailed})

	_ = svc.OnRunComplete(context.Background(), &pipeline.Result{DocumentID: "d1", Status: pipeline.StatusReviewRequired})
	svc.Wait()
	if len(m.notifications()) != 0 {
		t.Fatal("review alert should be filtered out")
	}

	_ = svc.OnRunComplete(context.Background(), &pipeline.Result{DocumentID: "d2", Status: pipeline.StatusFailed})
	svc.Wait()
	if len(m.notifications()) != 1 {
		t.Fatal("failed alert should pass the filter")
	}
}

func TestTemplateTitle(t *testing.T) {
	tests := map[string]string{
		"remittance_advice":    "Remittance advice",
		"missing_info_request": "Missing info request",
		"":                     "Invoice update",
	}
	for in, want := range tests {
		if got := templateTitle(in); got != want {
			t.Errorf("templateTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
