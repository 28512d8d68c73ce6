package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/lumeo/internal/notification"
)

type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (f *failingStore) SaveNotifications(notification.State) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("disk full")
}

func (f *failingStore) LoadNotifications() (notification.State, error) {
	return notification.State{}, nil
}

func (f *failingStore) Close() error { return nil }

func TestPersister_SavesLatestStateOnShutdown(t *testing.T) {
	t.Parallel()
	db := newTestStore(t)
	p := NewPersister(db)

	src := notification.NewStore()
	cancelObserve := src.Observe(p.Observe)
	defer cancelObserve()

	for i := 0; i < 10; i++ {
		src.Add(notification.Record{ID: "x"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	out, err := db.LoadNotifications()
	require.NoError(t, err)
	assert.Len(t, out.Items, 10)
	assert.Equal(t, 10, out.Unread)
}

func TestPersister_RunSavesWhileRunning(t *testing.T) {
	t.Parallel()
	db := newTestStore(t)
	p := NewPersister(db)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	p.Observe(notification.State{Items: []notification.Record{{ID: "a", Unread: true}}, Unread: 1})

	require.Eventually(t, func() bool {
		out, err := db.LoadNotifications()
		return err == nil && len(out.Items) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestPersister_SaveErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	db := &failingStore{}
	p := NewPersister(db)

	p.Observe(notification.State{Unread: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { p.Run(ctx) })

	db.mu.Lock()
	defer db.mu.Unlock()
	assert.Equal(t, 1, db.calls)
}

func TestPersister_IgnoresOlderSnapshot(t *testing.T) {
	t.Parallel()
	db := newTestStore(t)
	p := NewPersister(db)

	newer := notification.State{Items: []notification.Record{{ID: "b", Unread: true}, {ID: "a", Unread: true}}, Unread: 2, Version: 2}
	older := notification.State{Items: []notification.Record{{ID: "a", Unread: true}}, Unread: 1, Version: 1}
	p.Observe(newer)
	p.Observe(older)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	out, err := db.LoadNotifications()
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, 2, out.Unread)
}
