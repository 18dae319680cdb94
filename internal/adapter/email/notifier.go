// Package email provides an SMTP notifier that delivers vendor messages and
// AP team alerts.
package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/port/notifier"
)

const providerName = "email"

// Setting keys read through the notifier lookup.
const (
	KeyHost          = "smtp_host"
	KeyPort          = "smtp_port"
	KeyFrom          = "smtp_from"
	KeyPassword      = "smtp_password"
	KeyOpsRecipients = "ops_recipients" // comma separated
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier sends email notifications via SMTP.
type Notifier struct {
	lookup   notifier.Lookup
	sendMail sendFunc
}

// NewNotifier creates an email notifier that reads its SMTP settings through lookup.
func NewNotifier(lookup notifier.Lookup) *Notifier {
	return &Notifier{lookup: lookup, sendMail: smtp.SendMail}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{RichFormatting: true, Direct: true}
}

// Send delivers to the notification's recipient, or to the ops list when the
// notification is a team alert.
func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	host, from := n.lookup(KeyHost), n.lookup(KeyFrom)
	if host == "" || from == "" {
		return notifier.ErrNotConfigured
	}
	to := recipients(notification, n.lookup(KeyOpsRecipients))
	if len(to) == 0 {
		return notifier.ErrNotConfigured
	}

	port := n.lookup(KeyPort)
	if port == "" {
		port = "587"
	}

	var auth smtp.Auth
	if pw := n.lookup(KeyPassword); pw != "" {
		auth = smtp.PlainAuth("", from, pw, host)
	}

	msg := buildMessage(from, to, notification)
	if err := n.sendMail(net.JoinHostPort(host, port), auth, from, to, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", strings.Join(to, ","), err)
	}
	return nil
}

func recipients(n notifier.Notification, ops string) []string {
	if n.Recipient != "" {
		return []string{n.Recipient}
	}
	var out []string
	for _, r := range strings.Split(ops, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func buildMessage(from string, to []string, n notifier.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject(n))
	if n.DocumentID != "" {
		fmt.Fprintf(&b, "X-Invoice-Document: %s\r\n", n.DocumentID)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(n.Message)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func subject(n notifier.Notification) string {
	s := strings.NewReplacer("\r", " ", "\n", " ").Replace(n.Title)
	if n.Recipient == "" {
		return "[AP] " + s
	}
	return s
}
