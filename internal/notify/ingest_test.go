package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/lumeo/internal/notification"
)

func TestPayloadHandler_AddsAndAnnounces(t *testing.T) {
	t.Parallel()

	store := notification.NewStore()
	var got []Event
	handle := PayloadHandler(store, NotifierFunc(func(e Event) { got = append(got, e) }))

	handle(map[string]any{"id": "1", "type": "reservation.created"})
	handle([]any{"not", "an", "object"})
	handle("plain string")

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "New reservation", items[0].Title)
	assert.True(t, items[0].Unread)

	require.Len(t, got, 1)
	assert.Equal(t, EventAdded, got[0].Type)
	assert.Equal(t, 1, got[0].Unread)
}

func TestDeliver_NilNotifier(t *testing.T) {
	t.Parallel()

	store := notification.NewStore()
	Deliver(store, nil, notification.Record{ID: "x"})

	assert.Equal(t, 1, store.Unread())
}
