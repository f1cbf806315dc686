package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS model_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    dataset_rows INTEGER DEFAULT 0,
    grid_rows INTEGER DEFAULT 0,
    note TEXT
);

CREATE TABLE IF NOT EXISTS observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id TEXT NOT NULL,
    block_id TEXT NOT NULL,
    start_of_block BOOLEAN NOT NULL DEFAULT FALSE,
    agesex TEXT NOT NULL,
    dry INTEGER NOT NULL,
    yday INTEGER NOT NULL,
    solar_hour INTEGER NOT NULL,
    temp REAL,
    wind REAL,
    pressure REAL,
    precip REAL,
    windtemp REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_observations_subject ON observations(subject_id, block_id);

CREATE TABLE IF NOT EXISTS grid_rows (
    run_id INTEGER NOT NULL,
    row_index INTEGER NOT NULL,
    agesex TEXT NOT NULL,
    yday INTEGER NOT NULL,
    hour INTEGER NOT NULL,
    temp REAL,
    wind REAL,
    pressure REAL,
    precip REAL,
    windtemp REAL,
    PRIMARY KEY (run_id, row_index)
);

CREATE TABLE IF NOT EXISTS predictions (
    run_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    logit REAL NOT NULL,
    se REAL NOT NULL,
    prob REAL NOT NULL,
    lower95 REAL NOT NULL,
    upper95 REAL NOT NULL,
    PRIMARY KEY (run_id, path, row_index)
);

CREATE TABLE IF NOT EXISTS coefficients (
    run_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    term TEXT NOT NULL,
    estimate REAL NOT NULL,
    se REAL,
    PRIMARY KEY (run_id, path, term)
);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
