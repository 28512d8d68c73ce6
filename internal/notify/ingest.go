package notify

import (
	"log/slog"

	"github.com/btouchard/lumeo/internal/notification"
)

// Deliver adds r to store and announces it to n, which may be nil.
func Deliver(store *notification.Store, n Notifier, r notification.Record) {
	store.Add(r)
	if n != nil {
		n.Notify(Event{Type: EventAdded, Record: r, Unread: store.Unread()})
	}
}

// PayloadHandler returns a hub message handler that turns decoded payloads
// into notifications. Payloads that are not JSON objects are skipped.
func PayloadHandler(store *notification.Store, n Notifier) func(payload any) {
	return func(payload any) {
		r, ok := notification.FromPayload(payload)
		if !ok {
			slog.Debug("ignoring non-object hub payload", "payload", payload)
			return
		}
		Deliver(store, n, r)
	}
}
