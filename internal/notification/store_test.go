package notification

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string) Record {
	return Record{ID: id, Type: "message.created", Title: "t-" + id, Detail: "d-" + id, CreatedAt: "2026-01-01T00:00:00Z"}
}

func TestStore_New_IsEmpty(t *testing.T) {
	t.Parallel()
	s := NewStore()

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.Unread())
	assert.NotNil(t, s.State().Items)
}

func TestStore_Add_PrependsNewestFirst(t *testing.T) {
	t.Parallel()
	s := NewStore()

	s.Add(rec("1"))
	s.Add(rec("2"))
	s.Add(rec("3"))

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "3", items[0].ID)
	assert.Equal(t, "2", items[1].ID)
	assert.Equal(t, "1", items[2].ID)
}

func TestStore_Add_ForcesUnread(t *testing.T) {
	t.Parallel()
	s := NewStore()

	r := rec("1")
	r.Unread = false
	s.Add(r)

	items := s.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].Unread)
	assert.Equal(t, 1, s.Unread())
}

func TestStore_Add_NeverExceedsCapacity(t *testing.T) {
	t.Parallel()
	s := NewStore()

	for i := range 120 {
		s.Add(rec(fmt.Sprint(i)))
		assert.LessOrEqual(t, len(s.Items()), MaxItems)
	}
}

func TestStore_Add_51_EvictsOldestAndCounterDrifts(t *testing.T) {
	t.Parallel()
	s := NewStore()

	for i := 1; i <= 51; i++ {
		s.Add(rec(fmt.Sprint(i)))
	}

	items := s.Items()
	require.Len(t, items, MaxItems)
	assert.Equal(t, "51", items[0].ID)
	assert.Equal(t, "2", items[MaxItems-1].ID)
	for _, r := range items {
		assert.NotEqual(t, "1", r.ID, "oldest record must be evicted")
	}

	assert.Equal(t, 51, s.Unread())
	assert.Equal(t, 50, s.CountUnread())
}

func TestStore_Add_KeepsDuplicateIDs(t *testing.T) {
	t.Parallel()
	s := NewStore()

	s.Add(rec("dup"))
	s.Add(rec("dup"))

	assert.Len(t, s.Items(), 2)
}

func TestStore_MarkAllRead_IsIdempotent(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Add(rec("1"))
	s.Add(rec("2"))

	for range 2 {
		s.MarkAllRead()

		assert.Equal(t, 0, s.Unread())
		items := s.Items()
		require.Len(t, items, 2)
		for _, r := range items {
			assert.False(t, r.Unread)
		}
		assert.Equal(t, "2", items[0].ID)
		assert.Equal(t, "1", items[1].ID)
	}
}

func TestStore_MarkAllRead_ThenAdd_OnlyNewIsUnread(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Add(rec("1"))
	s.MarkAllRead()
	s.Add(rec("2"))

	items := s.Items()
	assert.True(t, items[0].Unread)
	assert.False(t, items[1].Unread)
	assert.Equal(t, 1, s.Unread())
}

func TestStore_Remove_DropsAllMatchesAndKeepsCounter(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Add(rec("a"))
	s.Add(rec("b"))
	s.Add(rec("a"))

	s.Remove("a")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, 3, s.Unread())
	assert.Equal(t, 1, s.CountUnread())
}

func TestStore_Remove_UnknownID_IsNoop(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Add(rec("a"))

	s.Remove("zzz")

	assert.Len(t, s.Items(), 1)
}

func TestStore_Clear_ResetsEverything(t *testing.T) {
	t.Parallel()
	s := NewStore()
	for i := range 60 {
		s.Add(rec(fmt.Sprint(i)))
	}
	s.Remove("59")

	s.Clear()

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.Unread())

	s.Clear()
	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.Unread())
}

func TestStore_Items_ReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Add(rec("1"))

	items := s.Items()
	items[0].Title = "mutated"

	assert.Equal(t, "t-1", s.Items()[0].Title)
}

func TestStore_Restore_TruncatesAndKeepsFlags(t *testing.T) {
	t.Parallel()
	s := NewStore()

	saved := make([]Record, 0, 60)
	for i := range 60 {
		r := rec(fmt.Sprint(i))
		r.Unread = i%2 == 0
		saved = append(saved, r)
	}

	s.Restore(saved, 7)

	items := s.Items()
	require.Len(t, items, MaxItems)
	assert.Equal(t, "0", items[0].ID)
	assert.True(t, items[0].Unread)
	assert.False(t, items[1].Unread)
	assert.Equal(t, 7, s.Unread())
}

func TestStore_Observe_CalledAfterEachMutation(t *testing.T) {
	t.Parallel()
	s := NewStore()

	var states []State
	cancel := s.Observe(func(st State) { states = append(states, st) })

	s.Add(rec("1"))
	s.MarkAllRead()
	s.Remove("1")
	s.Clear()

	require.Len(t, states, 4)
	assert.Equal(t, 1, states[0].Unread)
	assert.Len(t, states[0].Items, 1)
	assert.Equal(t, 0, states[1].Unread)
	assert.Empty(t, states[2].Items)
	assert.Empty(t, states[3].Items)

	cancel()
	cancel()
	s.Add(rec("2"))
	assert.Len(t, states, 4)
}

func TestStore_Observe_CanMutateFromCallback(t *testing.T) {
	t.Parallel()
	s := NewStore()

	var once sync.Once
	s.Observe(func(st State) {
		if st.Unread > 0 {
			once.Do(s.MarkAllRead)
		}
	})

	s.Add(rec("1"))

	assert.Equal(t, 0, s.Unread())
}

func TestStore_Observe_CallbackMutationDeliveredInOrder(t *testing.T) {
	t.Parallel()
	s := NewStore()

	var unread []int
	var once sync.Once
	s.Observe(func(st State) {
		unread = append(unread, st.Unread)
		if st.Unread > 0 {
			once.Do(s.MarkAllRead)
		}
	})

	s.Add(rec("1"))

	assert.Equal(t, []int{1, 0}, unread)
}

func TestStore_Observe_ConcurrentMutationsArriveInOrder(t *testing.T) {
	t.Parallel()
	s := NewStore()

	var (
		mu       sync.Mutex
		versions []uint64
		last     State
	)
	s.Observe(func(st State) {
		mu.Lock()
		versions = append(versions, st.Version)
		last = st
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				if j%10 == 9 {
					s.MarkAllRead()
					continue
				}
				s.Add(rec(fmt.Sprintf("%d-%d", i, j)))
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, versions, 400)
	for i := 1; i < len(versions); i++ {
		assert.Equal(t, versions[i-1]+1, versions[i], "state %d delivered out of order", i)
	}
	final := s.State()
	assert.Equal(t, final.Version, last.Version)
	assert.Equal(t, final.Unread, last.Unread)
	assert.Equal(t, final.Items, last.Items)
}

func TestStore_ConcurrentUse(t *testing.T) {
	t.Parallel()
	s := NewStore()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				s.Add(rec(fmt.Sprintf("%d-%d", i, j)))
				_ = s.State()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Items(), MaxItems)
	assert.Equal(t, 800, s.Unread())
}
