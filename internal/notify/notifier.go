package notify

import "github.com/btouchard/lumeo/internal/notification"

// Event types.
const (
	EventAdded   = "notification.added"
	EventReadAll = "notification.read_all"
	EventRemoved = "notification.removed"
	EventCleared = "notification.cleared"
)

// Event represents a change to the notification window.
type Event struct {
	Type string
	// Record is the added notification. For EventRemoved only ID is set.
	Record notification.Record
	// Unread is the store counter after the change.
	Unread int

	// MCPSessionID targets a specific MCP client session.
	// Empty means broadcast to all.
	MCPSessionID string
}

// Notifier receives notification window changes.
type Notifier interface {
	Notify(event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event Event)

func (f NotifierFunc) Notify(event Event) { f(event) }

// Hub dispatches events to multiple notifiers.
type Hub struct {
	notifiers []Notifier
}

// NewHub creates a Hub with the given notifiers.
func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Notify sends an event to all registered notifiers. Each notifier runs in its
// own goroutine so a slow one never blocks the caller.
func (h *Hub) Notify(event Event) {
	if h == nil {
		return
	}
	for _, n := range h.notifiers {
		go n.Notify(event)
	}
}
