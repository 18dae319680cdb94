// Package broadcast defines the port for pushing live pipeline events to
// connected clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventDecision     = "pipeline.decision"
	EventRunCompleted = "pipeline.completed"
	EventAgentStatus  = "agent.status"
)

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
