package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrCacheMiss is returned when no payload is cached for an activity
var ErrCacheMiss = errors.New("payload not cached")

// GetPayload returns the cached response of kind for activity id
func (db *DB) GetPayload(id int64, kind PayloadKind) ([]byte, error) {
	var payload []byte
	err := db.QueryRow(
		`SELECT payload FROM activity_cache WHERE id = ? AND kind = ?`, id, string(kind),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	return payload, err
}

// PutPayload caches a response, overwriting an older copy
func (db *DB) PutPayload(id int64, kind PayloadKind, payload []byte) error {
	_, err := db.Exec(`
		INSERT INTO activity_cache (id, kind, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id, kind) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, id, string(kind), payload, time.Now().Unix())
	return err
}

// PurgePayloads drops cached responses fetched before cutoff and reports how many went
func (db *DB) PurgePayloads(cutoff time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM activity_cache WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
