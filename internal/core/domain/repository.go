package domain

import (
	"context"
	"errors"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrInvalidOrder  = errors.New("order must list every habit exactly once")
)

// HabitRemote is the client's view of the remote habit service.
type HabitRemote interface {
	// ListHabits returns the user's habits in server order.
	ListHabits(ctx context.Context) ([]Habit, error)

	// GlobalStats returns the latest aggregate statistics.
	GlobalStats(ctx context.Context) (*GlobalStats, error)

	CreateHabit(ctx context.Context, input CreateHabitInput) (*Habit, error)

	// UpdateHabit applies a partial update and returns the canonical habit.
	UpdateHabit(ctx context.Context, id string, input UpdateHabitInput) (*Habit, error)

	// ToggleCompletion marks the habit complete for the current period.
	// A duplicate completion fails with KindSoftConflict.
	ToggleCompletion(ctx context.Context, id string) (*Habit, error)

	ReorderHabits(ctx context.Context, orderedIDs []string) error

	DeleteHabit(ctx context.Context, id string) error
}

// HabitRepository persists habits for the reference service.
type HabitRepository interface {
	// Create persists a new habit at the end of the user's order.
	Create(ctx context.Context, habit *HabitRecord) error

	GetByID(ctx context.Context, id string) (*HabitRecord, error)

	// ListByUserID returns the user's habits sorted by SortOrder.
	ListByUserID(ctx context.Context, userID string) ([]*HabitRecord, error)

	Update(ctx context.Context, habit *HabitRecord) error

	Delete(ctx context.Context, id string) error

	// Reorder assigns SortOrder from the position of each id in orderedIDs.
	Reorder(ctx context.Context, userID string, orderedIDs []string) error

	// Counters returns the user's monotonic totals, zero-valued if none exist yet.
	Counters(ctx context.Context, userID string) (*Counters, error)

	IncrementCreated(ctx context.Context, userID string) error

	// IncrementCompleted bumps the completion total and raises the recorded
	// max streak to streak when it is larger.
	IncrementCompleted(ctx context.Context, userID string, streak int) error
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
