package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/services"
)

func seedRecord(repo *MockRepo, id, userID string, longest int, dates ...string) {
	repo.store[id] = &domain.HabitRecord{
		Habit: domain.Habit{
			ID:              id,
			Name:            id,
			LongestStreak:   longest,
			CompletionDates: dates,
		},
		UserID: userID,
	}
}

func TestStatsService_GlobalStats(t *testing.T) {
	ctx := context.Background()
	userID := "user-stats-1"

	t.Run("Success: Sums live streaks and keeps the counter record", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewStatsService(repo).WithClock(clock)

		seedRecord(repo, "h1", userID, 0,
			"2024-06-13T08:00:00.000Z", "2024-06-14T08:00:00.000Z", "2024-06-15T08:00:00.000Z")
		seedRecord(repo, "h2", userID, 5, "2024-06-10T08:00:00.000Z")
		seedRecord(repo, "other", "someone-else", 0, "2024-06-15T08:00:00.000Z")
		*repo.counter(userID) = domain.Counters{UserID: userID, TotalCreated: 4, TotalCompleted: 10, MaxStreak: 7}

		stats, err := svc.GlobalStats(ctx, userID)
		require.NoError(t, err)

		assert.Equal(t, &domain.GlobalStats{
			TotalCreated:    4,
			TotalCompleted:  10,
			TotalStreakDays: 3,
			GlobalMaxStreak: 7,
		}, stats)
	})

	t.Run("Success: Live longest streak beats a stale counter", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewStatsService(repo).WithClock(clock)

		seedRecord(repo, "h2", userID, 5, "2024-06-10T08:00:00.000Z")
		repo.counter(userID).MaxStreak = 2

		stats, err := svc.GlobalStats(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalStreakDays)
		assert.Equal(t, 5, stats.GlobalMaxStreak)
	})

	t.Run("Success: New user gets zeros", func(t *testing.T) {
		svc := services.NewStatsService(NewMockRepo()).WithClock(clock)

		stats, err := svc.GlobalStats(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, &domain.GlobalStats{}, stats)
	})

	t.Run("Fail: Repository error", func(t *testing.T) {
		repo := NewMockRepo()
		repo.simulateError = errors.New("db down")
		svc := services.NewStatsService(repo).WithClock(clock)

		stats, err := svc.GlobalStats(ctx, userID)
		assert.Error(t, err)
		assert.Nil(t, stats)
	})
}
