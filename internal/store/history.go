package store

import (
	"time"
)

// SaveRides upserts the stress records of reviewed rides in one transaction
func (db *DB) SaveRides(rides []Ride) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ride_history (activity_id, source, start_time, duration, tss, intensity_factor)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, activity_id) DO UPDATE SET
			start_time = excluded.start_time,
			duration = excluded.duration,
			tss = excluded.tss,
			intensity_factor = excluded.intensity_factor
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rides {
		if _, err := stmt.Exec(r.ActivityID, r.Source, r.StartTime.Unix(), r.Duration, r.TSS, r.IntensityFactor); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RidesBetween returns the rides that started within [start, end], oldest first
func (db *DB) RidesBetween(start, end time.Time) ([]Ride, error) {
	rows, err := db.Query(`
		SELECT activity_id, source, start_time, duration, tss, intensity_factor
		FROM ride_history
		WHERE start_time BETWEEN ? AND ?
		ORDER BY start_time
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []Ride
	for rows.Next() {
		var (
			r       Ride
			started int64
		)
		if err := rows.Scan(&r.ActivityID, &r.Source, &started, &r.Duration, &r.TSS, &r.IntensityFactor); err != nil {
			return nil, err
		}
		r.StartTime = time.Unix(started, 0).UTC()
		rides = append(rides, r)
	}
	return rides, rows.Err()
}
