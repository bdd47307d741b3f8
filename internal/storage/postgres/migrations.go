package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations run in order on every startup; each one is idempotent.
// seq columns give a stable insertion order for rows created in the same second.
var migrations = []struct {
	name string
	sql  string
}{
	{"users", `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        username TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL
    );`},
	{"groups", `
    CREATE TABLE IF NOT EXISTS groups (
        id TEXT PRIMARY KEY,
        seq BIGSERIAL,
        name TEXT NOT NULL,
        description TEXT,
        creator_id TEXT NOT NULL,
        created_at BIGINT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_groups_creator_id ON groups(creator_id);`},
	{"group_members", `
    CREATE TABLE IF NOT EXISTS group_members (
        group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
        user_id TEXT NOT NULL,
        role TEXT NOT NULL DEFAULT 'member',
        joined_at BIGINT NOT NULL,
        PRIMARY KEY (group_id, user_id)
    );
    CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);`},
	{"expenses", `
    CREATE TABLE IF NOT EXISTS expenses (
        id TEXT PRIMARY KEY,
        seq BIGSERIAL,
        description TEXT,
        amount NUMERIC(14, 2) NOT NULL,
        payer_id TEXT NOT NULL,
        group_id TEXT REFERENCES groups(id) ON DELETE CASCADE,
        policy TEXT NOT NULL,
        is_settlement BOOLEAN NOT NULL DEFAULT FALSE,
        created_at BIGINT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);`},
	{"expense_shares", `
    CREATE TABLE IF NOT EXISTS expense_shares (
        id TEXT PRIMARY KEY,
        seq BIGSERIAL,
        expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
        user_id TEXT NOT NULL,
        amount NUMERIC(14, 2) NOT NULL,
        is_paid BOOLEAN NOT NULL DEFAULT FALSE
    );
    CREATE INDEX IF NOT EXISTS idx_expense_shares_expense_id ON expense_shares(expense_id);`},
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to migrate %s table: %w", m.name, err)
		}
	}
	return nil
}
