package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

var _ domain.HabitRepository = (*CachedHabitRepository)(nil)

const listCacheTTL = 30 * time.Minute

// CachedHabitRepository keeps each user's habit list in Redis and drops the
// entry on every write to that user's habits.
type CachedHabitRepository struct {
	next  domain.HabitRepository
	cache *redis.Client
}

func NewCachedHabitRepository(next domain.HabitRepository, cache *redis.Client) *CachedHabitRepository {
	return &CachedHabitRepository{
		next:  next,
		cache: cache,
	}
}

// cachedHabit carries the fields that HabitRecord hides from JSON.
type cachedHabit struct {
	Habit     domain.Habit `json:"habit"`
	UserID    string       `json:"user_id"`
	SortOrder int          `json:"sort_order"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (r *CachedHabitRepository) cacheKey(userID string) string {
	return fmt.Sprintf("habits:%s", userID)
}

func (r *CachedHabitRepository) invalidate(ctx context.Context, userID string) {
	if err := r.cache.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate for user %s: %v", userID, err)
	}
}

func (r *CachedHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.HabitRecord, error) {
	key := r.cacheKey(userID)

	val, err := r.cache.Get(ctx, key).Bytes()
	if err == nil {
		var cached []cachedHabit
		if err := json.Unmarshal(val, &cached); err == nil {
			habits := make([]*domain.HabitRecord, len(cached))
			for i, c := range cached {
				habits[i] = &domain.HabitRecord{
					Habit:     c.Habit,
					UserID:    c.UserID,
					SortOrder: c.SortOrder,
					CreatedAt: c.CreatedAt,
					UpdatedAt: c.UpdatedAt,
				}
			}
			return habits, nil
		}

		log.Printf("[CACHE] Corrupted data for user %s, cleaning up key", userID)
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	habits, err := r.next.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cached := make([]cachedHabit, len(habits))
	for i, h := range habits {
		cached[i] = cachedHabit{
			Habit:     h.Habit,
			UserID:    h.UserID,
			SortOrder: h.SortOrder,
			CreatedAt: h.CreatedAt,
			UpdatedAt: h.UpdatedAt,
		}
	}
	if data, err := json.Marshal(cached); err == nil {
		if setErr := r.cache.Set(ctx, key, data, listCacheTTL).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return habits, nil
}

func (r *CachedHabitRepository) GetByID(ctx context.Context, id string) (*domain.HabitRecord, error) {
	return r.next.GetByID(ctx, id)
}

func (r *CachedHabitRepository) Create(ctx context.Context, habit *domain.HabitRecord) error {
	if err := r.next.Create(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Update(ctx context.Context, habit *domain.HabitRecord) error {
	if err := r.next.Update(ctx, habit); err != nil {
		return err
	}
	r.invalidate(ctx, habit.UserID)
	return nil
}

func (r *CachedHabitRepository) Delete(ctx context.Context, id string) error {
	habit, err := r.next.GetByID(ctx, id)
	if err == nil && habit != nil {
		defer r.invalidate(ctx, habit.UserID)
	}

	return r.next.Delete(ctx, id)
}

func (r *CachedHabitRepository) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	defer r.invalidate(ctx, userID)
	return r.next.Reorder(ctx, userID, orderedIDs)
}

func (r *CachedHabitRepository) Counters(ctx context.Context, userID string) (*domain.Counters, error) {
	return r.next.Counters(ctx, userID)
}

func (r *CachedHabitRepository) IncrementCreated(ctx context.Context, userID string) error {
	return r.next.IncrementCreated(ctx, userID)
}

func (r *CachedHabitRepository) IncrementCompleted(ctx context.Context, userID string, streak int) error {
	return r.next.IncrementCompleted(ctx, userID, streak)
}
