package store

import "github.com/btouchard/lumeo/internal/notification"

// Store is the persistence interface for the notification window.
// Defined at the consumer side per Go conventions.
type Store interface {
	// SaveNotifications replaces the persisted snapshot with state.
	SaveNotifications(state notification.State) error
	// LoadNotifications returns the persisted snapshot, empty when none was saved.
	LoadNotifications() (notification.State, error)

	Close() error
}
