package hub

import (
	"log/slog"
	"slices"
	"sync"
)

// AllTopics is the subscription selector that matches every topic.
const AllTopics = "*"

// Update is a published message.
type Update struct {
	ID     string
	Type   string
	Topics []string
	Data   string
}

type subscriber struct {
	topics []string
	ch     chan Update
}

func (s *subscriber) matches(u Update) bool {
	if slices.Contains(s.topics, AllTopics) {
		return true
	}
	for _, t := range u.Topics {
		if slices.Contains(s.topics, t) {
			return true
		}
	}
	return false
}

// Broker fans published updates out to matching subscribers. A subscriber
// whose buffer is full misses the update.
type Broker struct {
	bufferSize int

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewBroker creates a Broker giving every subscriber bufferSize pending updates.
func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Broker{
		bufferSize: bufferSize,
		subs:       make(map[*subscriber]struct{}),
	}
}

// Subscribe registers interest in topics. The returned cancel function
// unregisters and closes the channel; it may be called more than once.
func (b *Broker) Subscribe(topics []string) (<-chan Update, func()) {
	sub := &subscriber{
		topics: slices.Clone(topics),
		ch:     make(chan Update, b.bufferSize),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			close(sub.ch)
			b.mu.Unlock()
		})
	}
}

// Publish delivers u to every subscriber whose topics intersect u.Topics and
// returns how many received it.
func (b *Broker) Publish(u Update) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs {
		if !sub.matches(u) {
			continue
		}
		select {
		case sub.ch <- u:
			delivered++
		default:
			slog.Warn("hub subscriber is lagging, update dropped", "id", u.ID)
		}
	}
	return delivered
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
