package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

var (
	_ domain.HabitRepository = (*InMemoryHabitRepository)(nil)
	_ domain.UserRepository  = (*InMemoryUserRepository)(nil)
)

type InMemoryHabitRepository struct {
	store    map[string]*domain.HabitRecord
	counters map[string]domain.Counters

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store:    make(map[string]*domain.HabitRecord),
		counters: make(map[string]domain.Counters),
	}
}

func cloneRecord(h *domain.HabitRecord) *domain.HabitRecord {
	c := *h
	c.Habit = h.Habit.Clone()
	return &c
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.HabitRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := 0
	for _, h := range r.store {
		if h.UserID == habit.UserID && h.SortOrder >= next {
			next = h.SortOrder + 1
		}
	}
	habit.SortOrder = next

	r.store[habit.ID] = cloneRecord(habit)
	return nil
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.HabitRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	return cloneRecord(habit), nil
}

func (r *InMemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.HabitRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habits := []*domain.HabitRecord{}
	for _, h := range r.store {
		if h.UserID == userID {
			habits = append(habits, cloneRecord(h))
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].SortOrder != habits[j].SortOrder {
			return habits[i].SortOrder < habits[j].SortOrder
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.HabitRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[habit.ID]; !ok {
		return domain.ErrHabitNotFound
	}

	r.store[habit.ID] = cloneRecord(habit)
	return nil
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return domain.ErrHabitNotFound
	}

	delete(r.store, id)
	return nil
}

func (r *InMemoryHabitRepository) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range orderedIDs {
		h, ok := r.store[id]
		if !ok || h.UserID != userID {
			return domain.ErrInvalidOrder
		}
	}
	for i, id := range orderedIDs {
		r.store[id].SortOrder = i
	}
	return nil
}

func (r *InMemoryHabitRepository) Counters(ctx context.Context, userID string) (*domain.Counters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.counters[userID]
	c.UserID = userID
	return &c, nil
}

func (r *InMemoryHabitRepository) IncrementCreated(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.counters[userID]
	c.TotalCreated++
	r.counters[userID] = c
	return nil
}

func (r *InMemoryHabitRepository) IncrementCompleted(ctx context.Context, userID string, streak int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.counters[userID]
	c.TotalCompleted++
	c.MaxStreak = max(c.MaxStreak, streak)
	r.counters[userID] = c
	return nil
}

type InMemoryUserRepository struct {
	byID    map[string]*domain.User
	byEmail map[string]string

	mu sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return domain.ErrEmailAlreadyExists
	}

	u := *user
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *user
	return &u, nil
}
