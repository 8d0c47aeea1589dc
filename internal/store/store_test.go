package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// migrations are idempotent
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestAuth(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetAuth()
	assert.ErrorIs(t, err, ErrNoAuth)
	assert.ErrorIs(t, db.UpdateTokens(&oauth2.Token{AccessToken: "a"}), ErrNoAuth)

	expiry := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}
	require.NoError(t, db.SaveAuth(AuthFromToken(42, tok)))

	got, err := db.GetAuth()
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.AthleteID)
	assert.Equal(t, "access", got.Token().AccessToken)
	assert.True(t, got.ExpiresAt.Equal(expiry))

	later := expiry.Add(6 * time.Hour)
	require.NoError(t, db.UpdateTokens(&oauth2.Token{AccessToken: "new", RefreshToken: "r2", Expiry: later}))
	got, err = db.GetAuth()
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.AthleteID)
	assert.Equal(t, "r2", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(later))
}

func TestPayloadCache(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetPayload(7, KindDetail)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, db.PutPayload(7, KindDetail, []byte(`{"id":7}`)))
	require.NoError(t, db.PutPayload(7, KindLaps, []byte(`[]`)))
	require.NoError(t, db.PutPayload(7, KindDetail, []byte(`{"id":7,"name":"x"}`)))

	got, err := db.GetPayload(7, KindDetail)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"x"}`, string(got))

	_, err = db.GetPayload(7, KindStreams)
	assert.ErrorIs(t, err, ErrCacheMiss)

	n, err := db.PurgePayloads(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRuns(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, db.RecordRun(&Run{
			ID:         id,
			Source:     "fit",
			RangeStart: start,
			RangeEnd:   start.AddDate(0, 0, 7),
			Rides:      i + 1,
			CreatedAt:  start.AddDate(0, 0, 8+i),
		}))
	}
	assert.Error(t, db.RecordRun(&Run{ID: "run-a"}))

	runs, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, 3, runs[0].Rides)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.True(t, runs[1].RangeStart.Equal(start))
}

func TestRideHistory(t *testing.T) {
	db := setupTestDB(t)
	day := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	tss := 80.0

	require.NoError(t, db.SaveRides([]Ride{
		{ActivityID: "1", Source: "strava", StartTime: day, Duration: 3600, TSS: &tss},
		{ActivityID: "2", Source: "strava", StartTime: day.AddDate(0, 0, 2), Duration: 1800},
		{ActivityID: "old", Source: "fit", StartTime: day.AddDate(0, -3, 0), Duration: 600},
	}))
	// re-reviewing a ride updates it in place
	tss = 95
	require.NoError(t, db.SaveRides([]Ride{{ActivityID: "1", Source: "strava", StartTime: day, Duration: 3600, TSS: &tss}}))

	rides, err := db.RidesBetween(day.AddDate(0, 0, -1), day.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, rides, 2)
	assert.Equal(t, "1", rides[0].ActivityID)
	require.NotNil(t, rides[0].TSS)
	assert.Equal(t, 95.0, *rides[0].TSS)
	assert.Nil(t, rides[1].TSS)
	assert.Nil(t, rides[1].IntensityFactor)
	assert.Equal(t, day.AddDate(0, 0, 2), rides[1].StartTime)
}
