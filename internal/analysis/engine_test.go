package analysis

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-review/internal/activity"
)

func TestNewEngineRejectsBadThresholds(t *testing.T) {
	_, err := NewEngine(Thresholds{FTP: 0, MaxHR: 185})
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = NewEngine(Thresholds{FTP: 250, MaxHR: -1})
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestNormalizedPower(t *testing.T) {
	t.Run("constant series returns its value exactly", func(t *testing.T) {
		for _, p := range []float64{1, 137, 250, 333.5} {
			np, ok := NormalizedPower([]float64{p, p, p, p, p})
			require.True(t, ok)
			assert.Equal(t, p, np)
		}
	})

	t.Run("empty series is undefined", func(t *testing.T) {
		_, ok := NormalizedPower(nil)
		assert.False(t, ok)
	})

	t.Run("never below average power", func(t *testing.T) {
		faker := gofakeit.New(42)
		for run := 0; run < 50; run++ {
			watts := make([]float64, 300)
			for i := range watts {
				watts[i] = faker.Float64Range(0, 600)
			}
			np, _ := NormalizedPower(watts)
			avg, _ := mean(watts)
			assert.GreaterOrEqual(t, np, avg, "run %d", run)
		}
	})
}

func TestCompute(t *testing.T) {
	engine := newTestEngine(250, 200)

	tests := []struct {
		name    string
		series  activity.Series
		summary activity.Summary
		checkFn func(t *testing.T, m *Metrics)
	}{
		{
			name:   "one hour at FTP is 100 TSS",
			series: constantSeries(3600, 250, 0),
			checkFn: func(t *testing.T, m *Metrics) {
				require.NotNil(t, m.NormalizedPower)
				assert.Equal(t, 250.0, *m.NormalizedPower)
				require.NotNil(t, m.TSS)
				assert.Equal(t, 100.0, *m.TSS)
				assert.InDelta(t, 1.0, *m.IntensityFactor, 1e-12)
				assert.Equal(t, 3600.0, m.Duration)
			},
		},
		{
			name:    "intensity factor from authoritative NP",
			series:  constantSeries(600, 200, 0),
			summary: activity.Summary{NormalizedPower: floatPtr(275)},
			checkFn: func(t *testing.T, m *Metrics) {
				assert.Equal(t, 275.0, *m.NormalizedPower)
				assert.InDelta(t, 1.10, *m.IntensityFactor, 1e-9)
			},
		},
		{
			name:   "authoritative values win over derived",
			series: constantSeries(60, 200, 150),
			summary: activity.Summary{
				AvgPower:     floatPtr(180),
				MaxPower:     floatPtr(900),
				AvgHeartRate: floatPtr(140),
				MaxHeartRate: floatPtr(171),
				AvgCadence:   floatPtr(88),
			},
			checkFn: func(t *testing.T, m *Metrics) {
				assert.Equal(t, 180.0, *m.AvgPower)
				assert.Equal(t, 900.0, *m.MaxPower)
				assert.Equal(t, 140.0, *m.AvgHeartRate)
				assert.Equal(t, 171.0, *m.MaxHeartRate)
				assert.Equal(t, 88.0, *m.AvgCadence)
				// NP is still derived since no weighted power was supplied
				assert.Equal(t, 200.0, *m.NormalizedPower)
				assert.InDelta(t, 200.0/140.0, *m.EfficiencyFactor, 1e-12)
			},
		},
		{
			name:    "relative effort replaces derived TSS",
			series:  constantSeries(3600, 250, 0),
			summary: activity.Summary{RelativeEffort: floatPtr(42)},
			checkFn: func(t *testing.T, m *Metrics) {
				assert.Equal(t, 42.0, *m.TSS)
			},
		},
		{
			name:   "absent channels stay absent",
			series: constantSeries(120, 0, 0),
			checkFn: func(t *testing.T, m *Metrics) {
				assert.Nil(t, m.AvgPower)
				assert.Nil(t, m.MaxPower)
				assert.Nil(t, m.NormalizedPower)
				assert.Nil(t, m.IntensityFactor)
				assert.Nil(t, m.TSS)
				assert.Nil(t, m.AvgHeartRate)
				assert.Nil(t, m.HRDrift)
				assert.Nil(t, m.EfficiencyFactor)
				assert.Nil(t, m.AvgCadence)
				assert.Nil(t, m.HRZones)
				assert.Nil(t, m.PowerZones)
				assert.Nil(t, m.PowerCurve)
				assert.Equal(t, 120.0, m.Duration)
			},
		},
		{
			name:   "HR drift of ten percent",
			series: driftSeries(100, 140, 154),
			checkFn: func(t *testing.T, m *Metrics) {
				require.NotNil(t, m.HRDrift)
				assert.InDelta(t, 10.0, *m.HRDrift, 1e-9)
			},
		},
		{
			name:   "single sample has no drift",
			series: constantSeries(1, 200, 150),
			checkFn: func(t *testing.T, m *Metrics) {
				assert.Nil(t, m.HRDrift)
			},
		},
		{
			name:   "zone tables are filled when channels exist",
			series: constantSeries(90, 150, 130),
			checkFn: func(t *testing.T, m *Metrics) {
				require.Len(t, m.PowerZones, len(PowerBands))
				require.Len(t, m.HRZones, len(HRBands))
				// 150/250 = 0.60 lands in Z2, 130/200 = 0.65 lands in Z2
				assert.Equal(t, 90, m.PowerZones[1].Samples)
				assert.Equal(t, 1.5, m.PowerZones[1].Minutes)
				assert.Equal(t, 90, m.HRZones[1].Samples)
			},
		},
		{
			name:   "variability index",
			series: powerSeries(100, 300, 100, 300),
			checkFn: func(t *testing.T, m *Metrics) {
				require.NotNil(t, m.VariabilityIndex)
				assert.Greater(t, *m.VariabilityIndex, 1.0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := engine.Compute(tt.series, tt.summary)
			require.NoError(t, err)
			tt.checkFn(t, m)
		})
	}
}

func TestComputeDurationFallback(t *testing.T) {
	engine := newTestEngine(250, 185)
	series := constantSeries(300, 200, 0)

	m, err := engine.Compute(series, activity.Summary{ElapsedTime: floatPtr(400), TimerTime: floatPtr(350)})
	require.NoError(t, err)
	assert.Equal(t, 400.0, m.Duration)

	m, err = engine.Compute(series, activity.Summary{TimerTime: floatPtr(350)})
	require.NoError(t, err)
	assert.Equal(t, 350.0, m.Duration)

	m, err = engine.Compute(series, activity.Summary{})
	require.NoError(t, err)
	assert.Equal(t, 300.0, m.Duration)
	// TSS always uses the sample count
	assert.InDelta(t, TrainingStress(300, 200, 250), *m.TSS, 1e-9)
}

func TestComputeRejectsNonMonotonicSeries(t *testing.T) {
	engine := newTestEngine(250, 185)
	series := constantSeries(10, 200, 140)
	series[5].Time = series[2].Time

	_, err := engine.Compute(series, activity.Summary{Name: "bad clock"})
	assert.ErrorIs(t, err, activity.ErrNonMonotonic)
}

func TestComputeActivityUsesLaps(t *testing.T) {
	engine := newTestEngine(250, 185)
	series := constantSeries(1200, 200, 140)

	a := &activity.Activity{
		Summary: activity.Summary{Name: "laps"},
		Series:  series,
		Laps: []activity.Lap{
			{Index: 0, StartTime: rideStart, ElapsedTime: 600, TimerTime: 600},
			{Index: 1, StartTime: rideStart.Add(600 * time.Second), ElapsedTime: 600, TimerTime: 600},
		},
	}

	m, laps, err := engine.ComputeActivity(a)
	require.NoError(t, err)
	require.Len(t, laps, 2)
	assert.Equal(t, 200.0, laps[0].NormalizedPower)
	assert.Equal(t, 200.0, *m.NormalizedPower)
	// input laps are not modified
	assert.Zero(t, a.Laps[0].NormalizedPower)
}

func driftSeries(n int, firstHR, secondHR float64) activity.Series {
	series := constantSeries(n, 200, firstHR)
	for i := n / 2; i < n; i++ {
		series[i].HeartRate = floatPtr(secondHR)
	}
	return series
}
