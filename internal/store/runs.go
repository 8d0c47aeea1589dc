package store

import (
	"fmt"
	"time"
)

// RecordRun stores a completed review
func (db *DB) RecordRun(run *Run) error {
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO review_runs (run_id, source, range_start, range_end, rides, failures, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.RangeStart.Unix(), run.RangeEnd.Unix(), run.Rides, run.Failures, created.Unix())
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query(`
		SELECT run_id, source, range_start, range_end, rides, failures, created_at
		FROM review_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                   Run
			start, end, created int64
		)
		if err := rows.Scan(&r.ID, &r.Source, &start, &end, &r.Rides, &r.Failures, &created); err != nil {
			return nil, err
		}
		r.RangeStart = time.Unix(start, 0)
		r.RangeEnd = time.Unix(end, 0)
		r.CreatedAt = time.Unix(created, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
