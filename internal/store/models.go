package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// PayloadKind names a cached Strava endpoint response
type PayloadKind string

const (
	KindDetail  PayloadKind = "detail"
	KindStreams PayloadKind = "streams"
	KindLaps    PayloadKind = "laps"
)

// Run is one completed review
type Run struct {
	ID         string    `db:"run_id"`
	Source     string    `db:"source"` // "fit" or "strava"
	RangeStart time.Time `db:"range_start"`
	RangeEnd   time.Time `db:"range_end"`
	Rides      int       `db:"rides"`
	Failures   int       `db:"failures"`
	CreatedAt  time.Time `db:"created_at"`
}

// Ride is the stress record kept for every reviewed ride
type Ride struct {
	ActivityID      string    `db:"activity_id"`
	Source          string    `db:"source"`
	StartTime       time.Time `db:"start_time"`
	Duration        float64   `db:"duration"`         // seconds
	TSS             *float64  `db:"tss"`              // nullable
	IntensityFactor *float64  `db:"intensity_factor"` // nullable
}
