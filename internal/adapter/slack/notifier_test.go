package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/invoiceflow/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func TestNotifierName(t *testing.T) {
	n := NewNotifier("")
	if n.Name() != "slack" {
		t.Fatalf("expected 'slack', got %q", n.Name())
	}
	if n.Capabilities().Direct {
		t.Fatal("slack is a channel notifier, not direct")
	}
}

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier("")
	err := n.Send(context.Background(), notifier.Notification{Title: "test"})
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendSuccess(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.Send(context.Background(), notifier.Notification{
		Title:      "Invoice blocked",
		Message:    "risk blocked the invoice",
		Level:      "error",
		Source:     notifier.SourceRunBlocked,
		DocumentID: "doc-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "[BLOCKED] Invoice blocked" {
		t.Fatalf("text = %q", got.Text)
	}
	if len(got.Blocks) != 3 || !strings.Contains(got.Blocks[2].Elements[0].Text, "doc-9") {
		t.Fatalf("blocks = %+v", got.Blocks)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	if err := n.Send(context.Background(), notifier.Notification{Title: "Test", Level: "info"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestFactoryReadsWebhookAtSendTime(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	url := ""
	n, err := notifier.New(providerName, func(key string) string {
		if key == KeyWebhookURL {
			return url
		}
		return ""
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Send(context.Background(), notifier.Notification{Title: "x"}); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured before the webhook is set, got %v", err)
	}
	url = srv.URL
	if err := n.Send(context.Background(), notifier.Notification{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Fatalf("hits = %d", hits)
	}
}
