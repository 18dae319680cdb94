// Package slack implements a notifier.Notifier that posts AP team alerts to a
// Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Strob0t/invoiceflow/internal/port/notifier"
)

const providerName = "slack"

// KeyWebhookURL is the setting holding the incoming webhook URL.
const KeyWebhookURL = "slack_webhook_url"

// Notifier sends notifications to Slack via incoming webhook.
type Notifier struct {
	webhookURL func() string
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier with a fixed webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return newNotifier(func() string { return webhookURL })
}

func newNotifier(url func() string) *Notifier {
	return &Notifier{
		webhookURL: url,
		httpClient: http.DefaultClient,
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{RichFormatting: true}
}

// slackMessage is the Slack Block Kit message payload.
type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	url := n.webhookURL()
	if url == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(buildMessage(notification))
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func buildMessage(n notifier.Notification) slackMessage {
	header := fmt.Sprintf("%s %s", levelTag(n.Level), n.Title)
	msg := slackMessage{
		Text: header,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: n.Message}},
		},
	}

	var ctxParts []string
	if n.DocumentID != "" {
		ctxParts = append(ctxParts, "document `"+n.DocumentID+"`")
	}
	if n.Source != "" {
		ctxParts = append(ctxParts, "_"+n.Source+"_")
	}
	if n.TraceID != "" {
		ctxParts = append(ctxParts, "trace `"+n.TraceID+"`")
	}
	if len(ctxParts) > 0 {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: strings.Join(ctxParts, " | ")}},
		})
	}
	return msg
}

func levelTag(level string) string {
	switch level {
	case "success":
		return "[OK]"
	case "error":
		return "[BLOCKED]"
	case "warning":
		return "[REVIEW]"
	default:
		return "[INFO]"
	}
}
