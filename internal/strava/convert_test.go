package strava

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-review/internal/activity"
)

func f(v float64) *float64 { return &v }

func TestToActivity(t *testing.T) {
	start := time.Date(2025, 6, 3, 6, 30, 0, 0, time.UTC)
	detail := &Activity{
		ID:                   99,
		Name:                 "Hill repeats",
		Type:                 "Ride",
		StartDate:            start,
		ElapsedTime:          3700,
		MovingTime:           3600,
		Distance:             30000,
		TotalElevationGain:   450,
		AverageWatts:         f(190),
		WeightedAverageWatts: f(230),
		SufferScore:          f(120),
	}
	streams := &Streams{
		Time:      &StreamData[float64]{Data: []float64{0, 1, 3}},
		Watts:     &StreamData[*float64]{Data: []*float64{f(200), nil, f(220)}},
		Heartrate: &StreamData[*float64]{Data: []*float64{f(130), f(131)}},
	}
	laps := []Lap{
		{LapIndex: 1, StartDate: start, ElapsedTime: 600, MovingTime: 590, AverageWatts: 150, AverageHeartrate: 125},
		{LapIndex: 2, StartDate: start.Add(10 * time.Minute), ElapsedTime: 300},
	}

	a := ToActivity(detail, streams, laps)

	s := a.Summary
	assert.Equal(t, "99", s.ID)
	assert.Equal(t, "Ride", s.Sport)
	assert.Equal(t, 3700.0, *s.ElapsedTime)
	assert.Equal(t, 3600.0, *s.TimerTime)
	assert.Equal(t, 230.0, *s.NormalizedPower)
	assert.Equal(t, 120.0, *s.RelativeEffort)
	assert.Nil(t, s.MaxPower)
	assert.Nil(t, s.AvgHeartRate)
	assert.Equal(t, "strava:99", a.Source)
	assert.True(t, a.Created.IsZero())

	require.Len(t, a.Series, 3)
	assert.Equal(t, start.Add(3*time.Second), a.Series[2].Time)
	assert.Nil(t, a.Series[1].Power)
	assert.Equal(t, 220.0, *a.Series[2].Power)
	// short heart rate stream leaves the tail absent
	assert.Nil(t, a.Series[2].HeartRate)
	assert.Nil(t, a.Series[0].Cadence)
	assert.NoError(t, a.Series.Validate())

	require.Len(t, a.Laps, 2)
	assert.Equal(t, 0, a.Laps[0].Index)
	assert.Equal(t, 150.0, a.Laps[0].AvgPower)
	assert.Equal(t, 590.0, a.Laps[0].TimerTime)
	assert.Zero(t, a.Laps[0].NormalizedPower)
	assert.Equal(t, "active", a.Laps[1].Intensity)
	assert.Equal(t, 1, a.Laps[1].Index)
}

func TestToActivityWithoutStreams(t *testing.T) {
	a := ToActivity(&Activity{ID: 1, StartDate: time.Now()}, nil, nil)
	assert.Empty(t, a.Series)
	assert.Empty(t, a.Laps)
	assert.Nil(t, a.Summary.ElapsedTime)
}

func TestToActivityIndexTimeWhenTimeStreamMissing(t *testing.T) {
	start := time.Date(2025, 6, 3, 6, 30, 0, 0, time.UTC)
	streams := &Streams{Watts: &StreamData[*float64]{Data: []*float64{f(100), f(110)}}}

	a := ToActivity(&Activity{ID: 1, StartDate: start}, streams, nil)
	require.Len(t, a.Series, 2)
	assert.Equal(t, start.Add(time.Second), a.Series[1].Time)
	assert.Equal(t, []float64{100, 110}, a.Series.Values(activity.Power))
}
