package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The schema only carries structural constraints. Business rules (closed sets,
// lengths, URL shape) live in the domain validator.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS movies (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL,
	category      TEXT NOT NULL,
	quality       TEXT NOT NULL,
	size          TEXT NOT NULL,
	download_link TEXT NOT NULL,
	poster        TEXT NOT NULL,
	views         BIGINT NOT NULL DEFAULT 0 CHECK (views >= 0),
	downloads     BIGINT NOT NULL DEFAULT 0 CHECK (downloads >= 0),
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movies_category ON movies (category);
CREATE INDEX IF NOT EXISTS idx_movies_quality ON movies (quality);
CREATE INDEX IF NOT EXISTS idx_movies_created_at ON movies (created_at DESC);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS movies (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL,
	category      TEXT NOT NULL,
	quality       TEXT NOT NULL,
	size          TEXT NOT NULL,
	download_link TEXT NOT NULL,
	poster        TEXT NOT NULL,
	views         INTEGER NOT NULL DEFAULT 0 CHECK (views >= 0),
	downloads     INTEGER NOT NULL DEFAULT 0 CHECK (downloads >= 0),
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_movies_category ON movies (category);
CREATE INDEX IF NOT EXISTS idx_movies_quality ON movies (quality);
CREATE INDEX IF NOT EXISTS idx_movies_created_at ON movies (created_at DESC);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
`

// Migrate creates the tables and indexes for db's dialect. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var schema string
	switch db.DriverName() {
	case "postgres":
		schema = postgresSchema
	case "sqlite3":
		schema = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
