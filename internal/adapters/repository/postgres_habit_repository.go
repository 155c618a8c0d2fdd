package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ domain.HabitRepository = (*PostgresHabitRepository)(nil)

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type habitRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	Name            string         `db:"name"`
	Color           string         `db:"color"`
	Icon            string         `db:"icon"`
	CurrentStreak   int            `db:"current_streak"`
	LongestStreak   int            `db:"longest_streak"`
	CompletionDates pq.StringArray `db:"completion_dates"`
	SortOrder       int            `db:"sort_order"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (row habitRow) record() *domain.HabitRecord {
	dates := []string(row.CompletionDates)
	if dates == nil {
		dates = []string{}
	}
	return &domain.HabitRecord{
		Habit: domain.Habit{
			ID:              row.ID,
			Name:            row.Name,
			Color:           row.Color,
			Icon:            row.Icon,
			CurrentStreak:   row.CurrentStreak,
			LongestStreak:   row.LongestStreak,
			CompletionDates: dates,
		},
		UserID:    row.UserID,
		SortOrder: row.SortOrder,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

const habitColumns = `id, user_id, name, color, icon, current_streak, longest_streak,
	completion_dates, sort_order, created_at, updated_at`

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.HabitRecord) error {
	query := `
        INSERT INTO habits (
            id, user_id, name, color, icon, current_streak, longest_streak,
            completion_dates, sort_order, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8,
            (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM habits WHERE user_id = $2),
            $9, $10
        )
        RETURNING sort_order`

	err := r.db.QueryRowContext(ctx, query,
		h.ID, h.UserID, h.Name, h.Color, h.Icon, h.CurrentStreak, h.LongestStreak,
		pq.StringArray(h.CompletionDates), h.CreatedAt, h.UpdatedAt,
	).Scan(&h.SortOrder)
	if err != nil {
		return fmt.Errorf("repository: create habit: %w", err)
	}
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.HabitRecord, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1`

	var row habitRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("repository: get habit: %w", err)
	}
	return row.record(), nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.HabitRecord, error) {
	query := `SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1
        ORDER BY sort_order ASC, created_at ASC`

	var rows []habitRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("repository: list habits: %w", err)
	}

	habits := make([]*domain.HabitRecord, 0, len(rows))
	for _, row := range rows {
		habits = append(habits, row.record())
	}
	return habits, nil
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.HabitRecord) error {
	query := `
        UPDATE habits SET
            name = $1, color = $2, icon = $3,
            current_streak = $4, longest_streak = $5, completion_dates = $6,
            updated_at = $7
        WHERE id = $8`

	res, err := r.db.ExecContext(ctx, query,
		h.Name, h.Color, h.Icon,
		h.CurrentStreak, h.LongestStreak, pq.StringArray(h.CompletionDates),
		h.UpdatedAt, h.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: update habit: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: delete habit: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresHabitRepository) Reorder(ctx context.Context, userID string, orderedIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin reorder: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE habits SET sort_order = $1 WHERE id = $2 AND user_id = $3`)
	if err != nil {
		return fmt.Errorf("repository: prepare reorder: %w", err)
	}
	defer stmt.Close()

	for i, id := range orderedIDs {
		res, err := stmt.ExecContext(ctx, i, id, userID)
		if err != nil {
			return fmt.Errorf("repository: reorder habit %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return domain.ErrInvalidOrder
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit reorder: %w", err)
	}
	return nil
}

func (r *PostgresHabitRepository) Counters(ctx context.Context, userID string) (*domain.Counters, error) {
	query := `SELECT user_id, total_created, total_completed, max_streak
        FROM habit_counters WHERE user_id = $1`

	var c domain.Counters
	if err := r.db.GetContext(ctx, &c, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.Counters{UserID: userID}, nil
		}
		return nil, fmt.Errorf("repository: get counters: %w", err)
	}
	return &c, nil
}

func (r *PostgresHabitRepository) IncrementCreated(ctx context.Context, userID string) error {
	query := `
        INSERT INTO habit_counters (user_id, total_created) VALUES ($1, 1)
        ON CONFLICT (user_id) DO UPDATE SET total_created = habit_counters.total_created + 1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("repository: increment created: %w", err)
	}
	return nil
}

func (r *PostgresHabitRepository) IncrementCompleted(ctx context.Context, userID string, streak int) error {
	query := `
        INSERT INTO habit_counters (user_id, total_completed, max_streak) VALUES ($1, 1, $2)
        ON CONFLICT (user_id) DO UPDATE SET
            total_completed = habit_counters.total_completed + 1,
            max_streak = GREATEST(habit_counters.max_streak, EXCLUDED.max_streak)`

	if _, err := r.db.ExecContext(ctx, query, userID, streak); err != nil {
		return fmt.Errorf("repository: increment completed: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}
