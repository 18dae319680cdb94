// Package notifier defines the outbound notification port.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier lacks the settings it needs to deliver.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification sources.
const (
	SourceRunBlocked    = "run.blocked"
	SourceRunFailed     = "run.failed"
	SourceRunReview     = "run.review_required"
	SourceVendorMessage = "vendor.message"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Level      string `json:"level"`  // "info", "success", "warning", "error"
	Source     string `json:"source"` // one of the Source constants
	DocumentID string `json:"document_id"`
	TraceID    string `json:"trace_id,omitempty"`
	Recipient  string `json:"recipient,omitempty"` // set for messages addressed to a vendor
}

// Capabilities declares which features a notifier supports.
type Capabilities struct {
	RichFormatting bool `json:"rich_formatting"`
	// Direct notifiers deliver to a named recipient. Channel notifiers
	// (chat webhooks) only reach the AP team.
	Direct bool `json:"direct"`
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "slack", "email").
	Name() string

	// Capabilities returns what this notifier supports.
	Capabilities() Capabilities

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
