package notification

// MaxItems is the number of records the store keeps. Older records are evicted first.
const MaxItems = 50

// Record is a single entry of the notification feed.
type Record struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // e.g. "message.created", "reservation.created", "reservation.completed"
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"createdAt"`
	Link      string `json:"link,omitempty"`

	// Unread is owned by the Store. Any value set by the caller is overridden on Add.
	Unread bool `json:"unread"`

	// Raw is the original event payload, kept for consumers that need its shape.
	Raw any `json:"raw,omitempty"`
}

// State is a point-in-time copy of the store contents.
type State struct {
	Items  []Record `json:"items"`
	Unread int      `json:"unread"`
	// Version increases with every mutation of the store the state was taken from.
	Version uint64 `json:"-"`
}
