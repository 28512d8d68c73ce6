package notification

import (
	"slices"
	"sync"
)

// Observer is called after every mutation with the resulting state.
type Observer func(State)

// Store holds the most recent notifications, newest first, capped at MaxItems.
//
// The unread counter counts Add calls since the last MarkAllRead or Clear. It is not
// decremented by Remove or by capacity eviction, so it can exceed the number of unread
// items; CountUnread returns the live count.
type Store struct {
	mu      sync.RWMutex
	items   []Record
	unread  int
	version uint64

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]Observer
	queue     []State
	notifying bool
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		items:     []Record{},
		observers: make(map[int]Observer),
	}
}

// Add inserts r at the front of the list, marked unread, and evicts the oldest
// records beyond MaxItems.
func (s *Store) Add(r Record) {
	r.Unread = true

	s.mu.Lock()
	items := make([]Record, 0, min(len(s.items)+1, MaxItems))
	items = append(items, r)
	items = append(items, s.items...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	s.items = items
	s.unread++
	s.commitLocked()
	s.mu.Unlock()

	s.notify()
}

// MarkAllRead flags every record as read and resets the unread counter.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	items := make([]Record, len(s.items))
	for i, r := range s.items {
		r.Unread = false
		items[i] = r
	}
	s.items = items
	s.unread = 0
	s.commitLocked()
	s.mu.Unlock()

	s.notify()
}

// Remove drops every record with the given id. The unread counter is left untouched.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.items = slices.DeleteFunc(slices.Clone(s.items), func(r Record) bool {
		return r.ID == id
	})
	s.commitLocked()
	s.mu.Unlock()

	s.notify()
}

// Clear empties the list and resets the unread counter.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = []Record{}
	s.unread = 0
	s.commitLocked()
	s.mu.Unlock()

	s.notify()
}

// Restore replaces the store contents with a previously saved state.
// Records keep their unread flags; the list is truncated to MaxItems.
func (s *Store) Restore(items []Record, unread int) {
	restored := slices.Clone(items)
	if restored == nil {
		restored = []Record{}
	}
	if len(restored) > MaxItems {
		restored = restored[:MaxItems]
	}

	s.mu.Lock()
	s.items = restored
	s.unread = max(unread, 0)
	s.commitLocked()
	s.mu.Unlock()

	s.notify()
}

// Items returns a copy of the records, newest first.
func (s *Store) Items() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Unread returns the unread counter.
func (s *Store) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// CountUnread returns the number of records currently flagged unread.
func (s *Store) CountUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.items {
		if r.Unread {
			n++
		}
	}
	return n
}

// State returns the records and the unread counter as one consistent snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Items: slices.Clone(s.items), Unread: s.unread, Version: s.version}
}

// commitLocked bumps the version and queues the post-mutation state for the
// observers. s.mu must be held for writing.
func (s *Store) commitLocked() {
	s.version++
	st := State{Items: slices.Clone(s.items), Unread: s.unread, Version: s.version}

	s.obsMu.Lock()
	if len(s.observers) > 0 {
		s.queue = append(s.queue, st)
	}
	s.obsMu.Unlock()
}

// Observe registers fn to be called after every mutation. States reach the
// observers in mutation order, one at a time. The returned cancel function unregisters it and may be called more than once.
func (s *Store) Observe(fn Observer) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// notify delivers queued states in mutation order. Only one goroutine
// delivers at a time; a mutation made while another goroutine (or an observer
// callback) is delivering is handed over to it.
func (s *Store) notify() {
	s.obsMu.Lock()
	if s.notifying {
		s.obsMu.Unlock()
		return
	}
	s.notifying = true

	for len(s.queue) > 0 {
		st := s.queue[0]
		s.queue = s.queue[1:]

		ids := make([]int, 0, len(s.observers))
		for id := range s.observers {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		fns := make([]Observer, 0, len(ids))
		for _, id := range ids {
			fns = append(fns, s.observers[id])
		}
		s.obsMu.Unlock()

		for _, fn := range fns {
			fn(st)
		}

		s.obsMu.Lock()
	}

	s.queue = nil
	s.notifying = false
	s.obsMu.Unlock()
}
