// Package db persists controller state that must survive restarts: the
// per-zone operating-mode records and the cumulative boiler runtime.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Open opens (creating if needed) the sqlite database and applies the schema.
func Open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Str("path", dbPath).Msg("Database opened")
	return conn, nil
}

func applySchema(conn *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS zone_modes (
			zone_name TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			manual_setpoint REAL,
			boost_expires_at TEXT,
			previous_mode TEXT,
			last_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS system (
			id INTEGER PRIMARY KEY CHECK(id=1),
			boiler_runtime_minutes REAL NOT NULL DEFAULT 0
		)`,
		`INSERT OR IGNORE INTO system (id, boiler_runtime_minutes) VALUES (1, 0)`,
	}

	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
