// Package postgres stores characters in PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const defaultTimeout = 5 * time.Second

// Open connects to dsn and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS characters (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	level                INTEGER NOT NULL DEFAULT 1,
	hit_points           INTEGER NOT NULL CHECK (hit_points >= 0),
	current_hit_points   INTEGER NOT NULL CHECK (current_hit_points >= 0),
	temporary_hit_points INTEGER NOT NULL DEFAULT 0 CHECK (temporary_hit_points >= 0),
	revision             BIGINT NOT NULL DEFAULT 0,
	defenses             JSONB NOT NULL DEFAULT '[]',
	details              JSONB NOT NULL DEFAULT '{}'
)`

// EnsureSchema creates the characters table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
