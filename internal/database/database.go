// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package database implements the server-side source of truth for
// albums and their status-change history on DuckDB.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/albumflow/albumflow/internal/config"
	"github.com/albumflow/albumflow/internal/logging"
)

// DB wraps the DuckDB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at the configured path and
// ensures the schema exists. Use Path ":memory:" for tests.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)

	db := &DB{conn: conn}
	if err := db.initSchema(context.Background()); err != nil {
		if cerr := conn.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("failed to close database after schema error")
		}
		return nil, err
	}
	return db, nil
}

// NewMemory opens an in-memory database for tests.
func NewMemory() (*DB, error) {
	return New(&config.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1})
}

func (db *DB) initSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS albums (
			id            VARCHAR PRIMARY KEY,
			project_id    VARCHAR NOT NULL,
			company_id    VARCHAR NOT NULL,
			name          VARCHAR NOT NULL,
			status_code   VARCHAR NOT NULL,
			department    VARCHAR DEFAULT '',
			executor      VARCHAR DEFAULT '',
			customer      VARCHAR DEFAULT '',
			deadline      TIMESTAMP,
			comment       VARCHAR DEFAULT '',
			external_link VARCHAR DEFAULT '',
			internal_link VARCHAR DEFAULT '',
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS album_events (
			event_id    VARCHAR PRIMARY KEY,
			album_id    VARCHAR NOT NULL,
			project_id  VARCHAR NOT NULL,
			company_id  VARCHAR NOT NULL,
			status_code VARCHAR NOT NULL,
			actor       VARCHAR DEFAULT '',
			comment     VARCHAR DEFAULT '',
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_albums_project ON albums(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_album ON album_events(album_id, created_at)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity, used by the readiness endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
