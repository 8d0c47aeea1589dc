package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Raw Strava payloads (detail, streams, laps) keyed by activity
		`CREATE TABLE IF NOT EXISTS activity_cache (
			id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload BLOB NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (id, kind)
		)`,

		// One row per review run
		`CREATE TABLE IF NOT EXISTS review_runs (
			run_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			range_start INTEGER NOT NULL,
			range_end INTEGER NOT NULL,
			rides INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_review_runs_created ON review_runs(created_at)`,

		// Per-ride stress history feeding the training load trend
		`CREATE TABLE IF NOT EXISTS ride_history (
			activity_id TEXT NOT NULL,
			source TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			duration REAL NOT NULL,
			tss REAL,
			intensity_factor REAL,
			PRIMARY KEY (source, activity_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_ride_history_start ON ride_history(start_time)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
