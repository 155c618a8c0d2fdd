package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/calendar"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/store"
)

var (
	// ErrResyncFailed is returned alongside a successful mutation's result
	// when the follow-up fetch did not complete. The mutation persisted.
	ErrResyncFailed = errors.New("sync: resync after mutation failed")
	ErrClosed       = errors.New("sync: service closed")
)

const (
	opFetch   = "fetch"
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"
	opToggle  = "toggle"
	opReorder = "reorder"
)

// Outcome is the settled state of a mutation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSoftConflict
	OutcomeHardFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftConflict:
		return "soft_conflict"
	default:
		return "hard_failure"
	}
}

func outcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if kind, _ := domain.KindOf(err); kind == domain.KindSoftConflict {
		return OutcomeSoftConflict
	}
	return OutcomeHardFailure
}

type SyncOption func(*SyncService)

func WithLogger(l *slog.Logger) SyncOption {
	return func(s *SyncService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *Metrics) SyncOption {
	return func(s *SyncService) {
		s.metrics = m
	}
}

// WithFetchCoalescing controls whether concurrent FetchAll calls share one
// request pair. It is on by default; when off, every call issues its own
// requests and the last response to arrive wins.
func WithFetchCoalescing(on bool) SyncOption {
	return func(s *SyncService) {
		s.coalesce = on
	}
}

// SyncService coordinates habit mutations against the remote service and
// keeps the store reconciled with the server's canonical state.
//
// A response that arrives after the caller's context is done, or after Close,
// is dropped without touching the store.
type SyncService struct {
	remote domain.HabitRemote
	store  *store.HabitStore

	logger   *slog.Logger
	metrics  *Metrics
	coalesce bool

	flight   singleflight.Group
	lifetime context.Context
	stop     context.CancelFunc

	// generation advances on every local write a fetch must not undo: a
	// settled mutation or an optimistic reorder. A fetch that started in an
	// older generation does not write.
	generation atomic.Uint64
}

func NewSyncService(remote domain.HabitRemote, st *store.HabitStore, opts ...SyncOption) *SyncService {
	lifetime, stop := context.WithCancel(context.Background())

	s := &SyncService{
		remote:   remote,
		store:    st,
		logger:   slog.Default(),
		coalesce: true,
		lifetime: lifetime,
		stop:     stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels every in-flight shared fetch and stops all further store
// writes. It is safe to call more than once.
func (s *SyncService) Close() {
	s.stop()
}

func (s *SyncService) Store() *store.HabitStore {
	return s.store
}

// writable reports why a response may not be written, or nil if it may.
func (s *SyncService) writable(ctx context.Context) error {
	if s.lifetime.Err() != nil {
		return ErrClosed
	}
	return ctx.Err()
}

// FetchAll reloads the habit list and the global stats. On failure the store
// is cleared and the error returned.
func (s *SyncService) FetchAll(ctx context.Context) error {
	if err := s.writable(ctx); err != nil {
		return err
	}
	if !s.coalesce {
		return s.fetch(ctx)
	}

	ch := s.flight.DoChan(opFetch, func() (any, error) {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		release := context.AfterFunc(s.lifetime, cancel)
		defer release()

		return nil, s.fetch(shared)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SyncService) fetch(ctx context.Context) error {
	if err := s.writable(ctx); err != nil {
		return err
	}
	started := s.generation.Load()

	s.store.SetBusy(true)
	defer s.store.SetBusy(false)

	done := s.metrics.startFetch()

	var (
		habits []domain.Habit
		stats  *domain.GlobalStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.remote.ListHabits(gctx)
		if err != nil {
			return err
		}
		habits = list
		return nil
	})
	g.Go(func() error {
		st, err := s.remote.GlobalStats(gctx)
		if err != nil {
			return err
		}
		stats = st
		return nil
	})
	err := g.Wait()
	done(err)

	if werr := s.writable(ctx); werr != nil {
		s.logger.Debug("dropping fetch response", "op", opFetch, "reason", werr)
		if err != nil {
			return fmt.Errorf("sync: fetch habits: %w", err)
		}
		return werr
	}

	if s.generation.Load() != started {
		s.logger.Debug("dropping fetch response that predates a mutation", "op", opFetch)
		if err != nil {
			return fmt.Errorf("sync: fetch habits: %w", err)
		}
		return nil
	}

	if err != nil {
		s.store.ReplaceAll(nil, nil)
		return fmt.Errorf("sync: fetch habits: %w", err)
	}

	s.store.ReplaceAll(habits, stats)
	return nil
}

// reconcile reloads the store after a mutation settled. It never joins a
// shared fetch, since that fetch may have been issued before the mutation
// reached the server.
func (s *SyncService) reconcile(ctx context.Context) error {
	if err := s.writable(ctx); err != nil {
		return err
	}
	s.generation.Add(1)
	return s.fetch(ctx)
}

// resync reconciles the store after a successful mutation.
func (s *SyncService) resync(ctx context.Context, op string) error {
	if err := s.reconcile(ctx); err != nil {
		s.logger.Warn("resync after mutation failed", "op", op, "error", err)
		return fmt.Errorf("%w: %w", ErrResyncFailed, err)
	}
	return nil
}

// CreateHabit creates a habit and reloads the list. Nothing is inserted
// locally before the server confirms.
func (s *SyncService) CreateHabit(ctx context.Context, input domain.CreateHabitInput) (*domain.Habit, error) {
	input, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	if err := s.writable(ctx); err != nil {
		return nil, err
	}

	settle := s.metrics.begin(opCreate)
	habit, err := s.remote.CreateHabit(ctx, input)
	settle(outcomeOf(err))
	if err != nil {
		return nil, fmt.Errorf("sync: create habit: %w", err)
	}

	return habit, s.resync(ctx, opCreate)
}

// UpdateHabit applies a partial update, patches the canonical habit into the
// store and reloads the list.
func (s *SyncService) UpdateHabit(ctx context.Context, id string, input domain.UpdateHabitInput) (*domain.Habit, error) {
	if id == "" {
		return nil, domain.ErrHabitIDEmpty
	}
	input, err := input.Normalize()
	if err != nil {
		return nil, err
	}
	if err := s.writable(ctx); err != nil {
		return nil, err
	}

	settle := s.metrics.begin(opUpdate)
	habit, err := s.remote.UpdateHabit(ctx, id, input)
	settle(outcomeOf(err))
	if err != nil {
		return nil, fmt.Errorf("sync: update habit %s: %w", id, err)
	}

	if s.writable(ctx) == nil {
		s.store.PatchOne(*habit)
	}
	return habit, s.resync(ctx, opUpdate)
}

func (s *SyncService) DeleteHabit(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrHabitIDEmpty
	}
	if err := s.writable(ctx); err != nil {
		return err
	}

	settle := s.metrics.begin(opDelete)
	err := s.remote.DeleteHabit(ctx, id)
	settle(outcomeOf(err))
	if err != nil {
		return fmt.Errorf("sync: delete habit %s: %w", id, err)
	}

	if s.writable(ctx) == nil {
		s.store.RemoveOne(id)
	}
	return s.resync(ctx, opDelete)
}

// ToggleCompletion marks the habit complete for today. A soft conflict
// (already completed) is not an error: the store is reconciled and
// OutcomeSoftConflict returned.
func (s *SyncService) ToggleCompletion(ctx context.Context, id string) (Outcome, error) {
	if id == "" {
		return OutcomeHardFailure, domain.ErrHabitIDEmpty
	}
	if err := s.writable(ctx); err != nil {
		return OutcomeHardFailure, err
	}

	settle := s.metrics.begin(opToggle)
	habit, err := s.remote.ToggleCompletion(ctx, id)
	outcome := outcomeOf(err)
	settle(outcome)

	switch outcome {
	case OutcomeSoftConflict:
		s.logger.Info("completion already recorded, reconciling", "op", opToggle, "habit_id", id)
		return outcome, s.resync(ctx, opToggle)
	case OutcomeHardFailure:
		return outcome, fmt.Errorf("sync: toggle habit %s: %w", id, err)
	}

	if s.writable(ctx) == nil {
		s.store.PatchOne(*habit)
	}
	return outcome, s.resync(ctx, opToggle)
}

// ReorderHabits applies the new order locally before calling the server.
// If the server rejects it, the server order is restored and the rejection
// returned.
func (s *SyncService) ReorderHabits(ctx context.Context, ordered []domain.Habit) error {
	if err := s.writable(ctx); err != nil {
		return err
	}

	s.store.ApplyOrder(ordered)
	s.generation.Add(1)

	ids := make([]string, len(ordered))
	for i, h := range ordered {
		ids[i] = h.ID
	}

	settle := s.metrics.begin(opReorder)
	err := s.remote.ReorderHabits(ctx, ids)
	settle(outcomeOf(err))
	if err != nil {
		err = fmt.Errorf("sync: reorder habits: %w", err)
		s.logger.Warn("reorder rejected, restoring server order", "op", opReorder, "error", err)
		if ferr := s.reconcile(ctx); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	return s.resync(ctx, opReorder)
}

// Summary is the dashboard header derived from the current snapshot.
type Summary struct {
	CompletedToday  int
	Total           int
	Progress        int
	TotalStreakDays int
	GlobalRecord    int
	Motivation      calendar.Motivation
}

// Summary reads the store; the day boundary is taken from ref's location.
func (s *SyncService) Summary(ref time.Time) Summary {
	snap := s.store.Snapshot()

	progress := calendar.ProgressPercentage(snap.Habits, ref)
	sum := Summary{
		CompletedToday: calendar.CountCompletedToday(snap.Habits, ref),
		Total:          len(snap.Habits),
		Progress:       progress,
		Motivation:     calendar.MotivationFor(progress),
	}
	if snap.Stats != nil {
		sum.TotalStreakDays = snap.Stats.TotalStreakDays
		sum.GlobalRecord = snap.Stats.GlobalMaxStreak
	}
	return sum
}
