package notification

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// knownTitles are display titles for the event types the platform publishes.
var knownTitles = map[string]string{
	"message.created":       "New message",
	"reservation.created":   "New reservation",
	"reservation.completed": "Reservation completed",
}

// IsKnownType reports whether t is one of the event types the platform publishes.
func IsKnownType(t string) bool {
	_, ok := knownTitles[t]
	return ok
}

// FromPayload builds a Record from a decoded hub payload.
// Only JSON objects are accepted; the payload itself is kept in Raw.
func FromPayload(payload any) (Record, bool) {
	fields, ok := payload.(map[string]any)
	if !ok {
		return Record{}, false
	}

	r := Record{
		ID:        idField(fields["id"]),
		Type:      stringField(fields, "type"),
		Title:     stringField(fields, "title"),
		Detail:    stringField(fields, "detail", "message"),
		CreatedAt: stringField(fields, "createdAt", "created_at"),
		Link:      stringField(fields, "link", "url"),
		Raw:       payload,
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Title == "" {
		r.Title = knownTitles[r.Type]
	}
	if r.Title == "" {
		r.Title = r.Type
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	return r, true
}

// stringField returns the first non-empty string value found under keys.
func stringField(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func idField(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
