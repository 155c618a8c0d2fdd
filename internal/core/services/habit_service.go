package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

// HabitService is the reference implementation of the remote habit service.
type HabitService struct {
	repo domain.HabitRepository
	now  func() time.Time
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock replaces the service clock. Used by tests to pin "today".
func (s *HabitService) WithClock(now func() time.Time) *HabitService {
	s.now = now
	return s
}

func (s *HabitService) Create(ctx context.Context, userID string, input domain.CreateHabitInput) (*domain.HabitRecord, error) {
	habit, err := domain.NewHabitRecord(userID, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	if err := s.repo.IncrementCreated(ctx, userID); err != nil {
		return nil, fmt.Errorf("habit service: failed to count created habit: %w", err)
	}

	return habit, nil
}

// List returns the user's habits in display order with streaks evaluated
// against the current day.
func (s *HabitService) List(ctx context.Context, userID string) ([]*domain.HabitRecord, error) {
	habits, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, h := range habits {
		h.RecalculateStreaks(now)
	}
	return habits, nil
}

func (s *HabitService) owned(ctx context.Context, userID, id string) (*domain.HabitRecord, error) {
	if id == "" {
		return nil, domain.ErrHabitIDEmpty
	}

	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) Update(ctx context.Context, userID, id string, input domain.UpdateHabitInput) (*domain.HabitRecord, error) {
	habit, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := habit.Apply(input); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	habit.RecalculateStreaks(s.now())
	return habit, nil
}

func (s *HabitService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

// Complete records today's completion. A second completion on the same UTC
// day fails with domain.ErrAlreadyCompleted.
func (s *HabitService) Complete(ctx context.Context, userID, id string) (*domain.HabitRecord, error) {
	habit, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := habit.Complete(s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	if err := s.repo.IncrementCompleted(ctx, userID, habit.LongestStreak); err != nil {
		return nil, fmt.Errorf("habit service: failed to count completion: %w", err)
	}

	return habit, nil
}

// Reorder accepts only a permutation of the user's habit ids.
func (s *HabitService) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	habits, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if len(orderedIDs) != len(habits) {
		return domain.ErrInvalidOrder
	}

	owned := make(map[string]bool, len(habits))
	for _, h := range habits {
		owned[h.ID] = true
	}
	for _, id := range orderedIDs {
		if !owned[id] {
			return domain.ErrInvalidOrder
		}
		delete(owned, id)
	}

	return s.repo.Reorder(ctx, userID, orderedIDs)
}
