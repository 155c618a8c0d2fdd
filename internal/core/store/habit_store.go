// Package store holds the client's in-memory mirror of server-authoritative
// habit data.
//
// A HabitStore is an observable container: every write replaces the current
// Snapshot under a lock and is pushed to subscribers. Writes never fail and
// never perform I/O. Each HabitStore is independent; create one per session.
package store

import (
	"sync"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

// Snapshot is an immutable view of the store. Values returned by the store
// are deep copies, so callers may keep or modify them freely.
type Snapshot struct {
	Habits []domain.Habit
	// Stats is nil until the first successful fetch and after a failed one.
	Stats *domain.GlobalStats
	Busy  bool
	// Version increases with every write.
	Version uint64
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Habits = cloneHabits(s.Habits)
	c.Stats = s.Stats.Clone()
	return c
}

// Find returns the habit with the given id.
func (s Snapshot) Find(id string) (domain.Habit, bool) {
	for _, h := range s.Habits {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Habit{}, false
}

// IDs returns the habit ids in display order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Habits))
	for i, h := range s.Habits {
		ids[i] = h.ID
	}
	return ids
}

type HabitStore struct {
	mu   sync.RWMutex
	snap Snapshot

	subs    map[int]chan Snapshot
	nextSub int
}

func NewHabitStore() *HabitStore {
	return &HabitStore{
		snap: Snapshot{Habits: []domain.Habit{}},
		subs: make(map[int]chan Snapshot),
	}
}

// ReplaceAll atomically overwrites the habit list and the stats.
func (s *HabitStore) ReplaceAll(habits []domain.Habit, stats *domain.GlobalStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Habits = uniqueHabits(habits)
	s.snap.Stats = stats.Clone()
	s.commit()
}

// PatchOne replaces the entry with the same id. A habit that is not cached
// is ignored; the follow-up resync brings it in.
func (s *HabitStore) PatchOne(h domain.Habit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Habits, h.ID)
	if idx < 0 {
		return false
	}

	habits := cloneHabits(s.snap.Habits)
	habits[idx] = h.Clone()
	s.snap.Habits = habits
	s.commit()
	return true
}

// ApplyOrder replaces the list with ordered, leaving the stats untouched.
func (s *HabitStore) ApplyOrder(ordered []domain.Habit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Habits = uniqueHabits(ordered)
	s.commit()
}

// RemoveOne drops the habit with the given id after a confirmed delete.
func (s *HabitStore) RemoveOne(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.snap.Habits, id)
	if idx < 0 {
		return false
	}

	habits := make([]domain.Habit, 0, len(s.snap.Habits)-1)
	habits = append(habits, s.snap.Habits[:idx]...)
	habits = append(habits, s.snap.Habits[idx+1:]...)
	s.snap.Habits = habits
	s.commit()
	return true
}

func (s *HabitStore) SetBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Busy = busy
	s.commit()
}

func (s *HabitStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap.clone()
}

// Subscribe returns a channel that receives the latest snapshot after every
// write. The channel buffers a single value and a slow reader only ever
// sees the newest snapshot; writers never block. The returned function
// unsubscribes and closes the channel.
func (s *HabitStore) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// commit bumps the version and publishes. Callers hold the write lock.
func (s *HabitStore) commit() {
	s.snap.Version++
	for _, ch := range s.subs {
		snap := s.snap.clone()
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func indexOf(habits []domain.Habit, id string) int {
	for i, h := range habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

func cloneHabits(habits []domain.Habit) []domain.Habit {
	out := make([]domain.Habit, len(habits))
	for i, h := range habits {
		out[i] = h.Clone()
	}
	return out
}

// uniqueHabits copies habits, keeping the first occurrence of each id.
func uniqueHabits(habits []domain.Habit) []domain.Habit {
	seen := make(map[string]struct{}, len(habits))
	out := make([]domain.Habit, 0, len(habits))
	for _, h := range habits {
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		out = append(out, h.Clone())
	}
	return out
}
