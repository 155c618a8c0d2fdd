package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS habits (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	color            TEXT NOT NULL,
	icon             TEXT NOT NULL,
	current_streak   INT NOT NULL DEFAULT 0,
	longest_streak   INT NOT NULL DEFAULT 0,
	completion_dates TEXT[] NOT NULL DEFAULT '{}',
	sort_order       INT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_habits_user_order ON habits (user_id, sort_order);

CREATE TABLE IF NOT EXISTS habit_counters (
	user_id         TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	total_created   INT NOT NULL DEFAULT 0,
	total_completed INT NOT NULL DEFAULT 0,
	max_streak      INT NOT NULL DEFAULT 0
);
`

// EnsureSchema creates the tables the Postgres repositories need.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("repository: ensure schema: %w", err)
	}
	return nil
}
