package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/Strob0t/invoiceflow/internal/port/notifier"
)

var _ notifier.Notifier = (*Notifier)(nil)

type sent struct {
	addr string
	to   []string
	msg  string
	auth bool
}

func newTestNotifier(settings map[string]string) (*Notifier, *[]sent) {
	var out []sent
	n := NewNotifier(func(key string) string { return settings[key] })
	n.sendMail = func(addr string, a smtp.Auth, _ string, to []string, msg []byte) error {
		out = append(out, sent{addr: addr, to: to, msg: string(msg), auth: a != nil})
		return nil
	}
	return n, &out
}

func TestSendNotConfigured(t *testing.T) {
	n, _ := newTestNotifier(map[string]string{KeyFrom: "ap@example.com"})
	err := n.Send(context.Background(), notifier.Notification{Title: "x", Recipient: "v@example.com"})
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendVendorMessage(t *testing.T) {
	n, out := newTestNotifier(map[string]string{
		KeyHost: "smtp.example.com", KeyFrom: "ap@example.com", KeyPassword: "s3cret",
		KeyOpsRecipients: "ops@example.com",
	})
	err := n.Send(context.Background(), notifier.Notification{
		Title:      "Remittance advice",
		Message:    "Payment scheduled.",
		Source:     notifier.SourceVendorMessage,
		DocumentID: "doc-1",
		Recipient:  "billing@vendor.example",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(*out) != 1 {
		t.Fatalf("sent %d mails", len(*out))
	}
	m := (*out)[0]
	if m.addr != "smtp.example.com:587" || !m.auth {
		t.Fatalf("addr=%q auth=%v", m.addr, m.auth)
	}
	if len(m.to) != 1 || m.to[0] != "billing@vendor.example" {
		t.Fatalf("to = %v", m.to)
	}
	if !strings.Contains(m.msg, "Subject: Remittance advice\r\n") || !strings.Contains(m.msg, "X-Invoice-Document: doc-1") {
		t.Fatalf("message:\n%s", m.msg)
	}
}

func TestSendTeamAlertUsesOpsList(t *testing.T) {
	n, out := newTestNotifier(map[string]string{
		KeyHost: "smtp.example.com", KeyPort: "2525", KeyFrom: "ap@example.com",
		KeyOpsRecipients: "a@example.com, b@example.com,",
	})
	if err := n.Send(context.Background(), notifier.Notification{Title: "Invoice\r\nBcc: x", Message: "blocked"}); err != nil {
		t.Fatal(err)
	}
	m := (*out)[0]
	if len(m.to) != 2 || m.to[1] != "b@example.com" || m.addr != "smtp.example.com:2525" || m.auth {
		t.Fatalf("unexpected delivery %+v", m)
	}
	if !strings.Contains(m.msg, "Subject: [AP] Invoice  Bcc: x\r\n") {
		t.Fatalf("subject not sanitized:\n%s", m.msg)
	}
}

func TestSendNoRecipients(t *testing.T) {
	n, _ := newTestNotifier(map[string]string{KeyHost: "smtp.example.com", KeyFrom: "ap@example.com"})
	if err := n.Send(context.Background(), notifier.Notification{Title: "x"}); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
