package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/btouchard/lumeo/internal/notification"
)

// Persister saves notification snapshots from a single goroutine. Snapshots
// arriving while a save is in flight are coalesced; only the newest is kept.
type Persister struct {
	db     Store
	signal chan struct{}

	mu      sync.Mutex
	latest  notification.State
	pending bool
}

func NewPersister(db Store) *Persister {
	return &Persister{db: db, signal: make(chan struct{}, 1)}
}

// Observe queues st for saving. A snapshot older than the one already queued
// or saved is ignored. It never blocks and is meant to be passed to
// notification.Store.Observe.
func (p *Persister) Observe(st notification.State) {
	p.mu.Lock()
	if st.Version < p.latest.Version {
		p.mu.Unlock()
		return
	}
	p.latest = st
	p.pending = true
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Run saves queued snapshots until ctx is done, then saves whatever is still
// queued and returns.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-p.signal:
			p.flush()
		case <-ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *Persister) flush() {
	p.mu.Lock()
	if !p.pending {
		p.mu.Unlock()
		return
	}
	st := p.latest
	p.pending = false
	p.mu.Unlock()

	p.save(st)
}

func (p *Persister) save(st notification.State) {
	if err := p.db.SaveNotifications(st); err != nil {
		slog.Warn("failed to persist notifications", "error", err)
		return
	}
	slog.Debug("notifications persisted", "items", len(st.Items), "unread", st.Unread)
}
