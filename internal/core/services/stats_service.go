package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

type StatsService struct {
	habitRepo domain.HabitRepository
	now       func() time.Time
}

func NewStatsService(habitRepo domain.HabitRepository) *StatsService {
	return &StatsService{
		habitRepo: habitRepo,
		now:       time.Now,
	}
}

func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// GlobalStats combines the user's monotonic counters with the live streaks.
// The global record never drops below any streak recorded before, even for
// habits that were since deleted.
func (s *StatsService) GlobalStats(ctx context.Context, userID string) (*domain.GlobalStats, error) {
	counters, err := s.habitRepo.Counters(ctx, userID)
	if err != nil {
		return nil, err
	}

	habits, err := s.habitRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &domain.GlobalStats{
		TotalCreated:    counters.TotalCreated,
		TotalCompleted:  counters.TotalCompleted,
		GlobalMaxStreak: counters.MaxStreak,
	}

	now := s.now()
	for _, h := range habits {
		h.RecalculateStreaks(now)
		stats.TotalStreakDays += h.CurrentStreak
		if h.LongestStreak > stats.GlobalMaxStreak {
			stats.GlobalMaxStreak = h.LongestStreak
		}
	}

	return stats, nil
}
