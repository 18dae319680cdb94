package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/invoiceflow/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// scope picks the document a payload belongs to, if any.
type scope struct {
	DocumentID string `json:"document_id"`
}

// BroadcastEvent marshals a typed event and broadcasts it to the clients
// watching its document.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("websocket event marshal failed", "type", eventType, "error", err)
		return
	}
	var s scope
	_ = json.Unmarshal(data, &s)
	h.Broadcast(ctx, s.DocumentID, Message{Type: eventType, Payload: data})
}
