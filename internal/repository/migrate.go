package repository

import (
	"context"

	"entgo.io/ent/dialect"
)

func ddl(d string) []string {
	id, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if d == dialect.Postgres {
		id, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS usage_records (
			id ` + id + `,
			session_key TEXT NOT NULL,
			filename TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			input_cost DOUBLE PRECISION NOT NULL,
			output_cost DOUBLE PRECISION NOT NULL,
			total_cost DOUBLE PRECISION NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_records_session ON usage_records(session_key)`,
	}
}

// Migrate creates the usage tables when they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range ddl(db.Dialect()) {
		if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			db.log.Error("migration failed", "error", err)
			return err
		}
	}
	db.log.Debug("migrations applied", "dialect", db.Dialect())
	return nil
}
