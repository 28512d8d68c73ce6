package notify

import (
	"log/slog"
	"sync"
	"time"
)

// MCPSender abstracts the mcp-go server notification methods.
// Defined consumer-side per Go convention.
type MCPSender interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
	SendNotificationToAllClients(method string, params map[string]any)
}

// MCPNotifier pushes notification window changes to MCP clients.
type MCPNotifier struct {
	sender   MCPSender
	debounce time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time // event type → last bulk notification time
}

// NewMCPNotifier creates an MCPNotifier with the given debounce interval for
// bulk events (read-all, remove, clear). Added notifications are always sent
// immediately.
func NewMCPNotifier(sender MCPSender, debounce time.Duration) *MCPNotifier {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &MCPNotifier{
		sender:   sender,
		debounce: debounce,
		lastSent: make(map[string]time.Time),
	}
}

// Notify sends an MCP notification for the given event.
func (n *MCPNotifier) Notify(event Event) {
	switch event.Type {
	case EventAdded:
		n.sendAdded(event)
	case EventReadAll, EventRemoved, EventCleared:
		n.sendChange(event)
	default:
		slog.Debug("mcp notifier: unknown event type", "type", event.Type)
	}
}

func (n *MCPNotifier) sendAdded(event Event) {
	r := event.Record
	data := map[string]any{
		"type":       event.Type,
		"id":         r.ID,
		"kind":       r.Type,
		"title":      r.Title,
		"detail":     r.Detail,
		"created_at": r.CreatedAt,
		"unread":     event.Unread,
	}
	if r.Link != "" {
		data["link"] = r.Link
	}

	n.send(event.MCPSessionID, "notifications/message", map[string]any{
		"level":  "info",
		"logger": "lumeo",
		"data":   data,
	})
}

// sendChange sends a debug-level message for bulk changes, at most once per
// debounce interval and event type.
func (n *MCPNotifier) sendChange(event Event) {
	n.mu.Lock()
	last, ok := n.lastSent[event.Type]
	if ok && time.Since(last) < n.debounce {
		n.mu.Unlock()
		return
	}
	n.lastSent[event.Type] = time.Now()
	n.mu.Unlock()

	data := map[string]any{
		"type":   event.Type,
		"unread": event.Unread,
	}
	if event.Type == EventRemoved {
		data["id"] = event.Record.ID
	}

	n.send(event.MCPSessionID, "notifications/message", map[string]any{
		"level":  "debug",
		"logger": "lumeo",
		"data":   data,
	})
}

// send dispatches to a specific client or broadcasts.
func (n *MCPNotifier) send(mcpSessionID, method string, params map[string]any) {
	if mcpSessionID != "" {
		if err := n.sender.SendNotificationToSpecificClient(mcpSessionID, method, params); err != nil {
			slog.Debug("mcp notification failed, falling back to broadcast",
				"session_id", mcpSessionID,
				"method", method,
				"error", err)
			n.sender.SendNotificationToAllClients(method, params)
		}
		return
	}
	n.sender.SendNotificationToAllClients(method, params)
}
