package activity

import (
	"errors"
	"time"
)

// ErrSourceUnavailable is returned when an activity cannot be fetched or decoded at all
var ErrSourceUnavailable = errors.New("activity source unavailable")

// ErrNoUsableSamples is returned when an activity has no power-bearing samples after cleaning
var ErrNoUsableSamples = errors.New("no usable samples")

// Summary holds activity-level metadata from the source.
// Pointer fields are optional: nil means the source did not supply the value.
// The authoritative fields (AvgPower through RelativeEffort) take precedence
// over anything derived from the sample series.
type Summary struct {
	ID        string
	Name      string
	Sport     string
	StartTime time.Time

	ElapsedTime   *float64 // seconds
	TimerTime     *float64 // seconds
	Distance      *float64 // meters
	ElevationGain *float64 // meters
	Calories      *float64
	Kilojoules    *float64

	AvgPower        *float64
	MaxPower        *float64
	NormalizedPower *float64 // weighted average power
	AvgHeartRate    *float64
	MaxHeartRate    *float64
	AvgCadence      *float64
	MaxCadence      *float64
	RelativeEffort  *float64
}

// Lap is a time-bounded section of a ride with lap-level aggregates.
// Unlike Summary, absent lap values are zero.
type Lap struct {
	Index     int
	StartTime time.Time

	ElapsedTime float64 // seconds
	TimerTime   float64 // seconds
	Distance    float64 // meters

	AvgPower        float64
	MaxPower        float64
	NormalizedPower float64
	AvgHeartRate    float64
	MaxHeartRate    float64
	AvgCadence      float64
	AvgSpeed        float64 // m/s
	Ascent          float64 // meters

	Trigger   string
	Intensity string

	IntensityFactor float64
	TSS             float64
}

// End returns the end of the lap window
func (l Lap) End() time.Time {
	return l.StartTime.Add(time.Duration(l.ElapsedTime * float64(time.Second)))
}

// Duration returns the time shown for the lap: timer time, or elapsed time when no timer time was recorded
func (l Lap) Duration() float64 {
	if l.TimerTime > 0 {
		return l.TimerTime
	}
	return l.ElapsedTime
}

// Activity bundles everything a source yields for one ride
type Activity struct {
	Summary Summary
	Series  Series
	Laps    []Lap

	// Created is the device file creation time, zero for remote activities
	Created time.Time
	Source  string
}

// Float returns a pointer to v, for building optional fields
func Float(v float64) *float64 {
	return &v
}
