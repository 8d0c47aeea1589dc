package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestClassifyZonesPowerGaps(t *testing.T) {
	tests := []struct {
		name    string
		pct     float64
		counted bool
	}{
		{"gap between Z2 and Z3", 0.755, false},
		{"gap between Z3 and Z4", 0.905, false},
		{"gap between Z4 and Z5", 1.055, false},
		{"Z2 upper edge is open", 0.75, false},
		{"Z3 lower edge", 0.76, true},
		{"Z6 is unbounded", 3.0, true},
		{"zero watts in Z1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := ClassifyZones(repeat(tt.pct*200, 100), 200, PowerBands)
			if tt.counted {
				assert.Equal(t, 100, CountedSamples(zones))
			} else {
				assert.Equal(t, 0, CountedSamples(zones))
			}
		})
	}
}

func TestClassifyZonesHRCeiling(t *testing.T) {
	// at or above max HR falls outside every band
	zones := ClassifyZones([]float64{200, 210, 199}, 200, HRBands)
	assert.Equal(t, 1, CountedSamples(zones))
	assert.Equal(t, 1, zones[4].Samples)
}

func TestClassifyZonesBoundariesLandInUpperBand(t *testing.T) {
	zones := ClassifyZones([]float64{120, 140, 160, 180}, 200, HRBands)
	assert.Equal(t, []int{0, 1, 1, 1, 1}, samplesOf(zones))
}

func TestClassifyZonesMinutes(t *testing.T) {
	values := append(repeat(100, 3600), repeat(180, 45)...)
	zones := ClassifyZones(values, 200, HRBands)

	require.Len(t, zones, 5)
	assert.Equal(t, "Z1 (<60%)", zones[0].Label)
	assert.Equal(t, 60.0, zones[0].Minutes)
	// 45 samples is 0.75 minutes, rounded to 0.8
	assert.Equal(t, 0.8, zones[4].Minutes)
	assert.Equal(t, 0.0, zones[2].Minutes)
}

func TestClassifyZonesCountsPlusGapEqualTotal(t *testing.T) {
	var values []float64
	for w := 0.0; w <= 400; w += 0.5 {
		values = append(values, w)
	}
	zones := ClassifyZones(values, 250, PowerBands)

	gap := 0
	for _, v := range values {
		pct := v / 250
		if (pct >= 0.75 && pct < 0.76) || (pct >= 0.90 && pct < 0.91) || (pct >= 1.05 && pct < 1.06) {
			gap++
		}
	}
	assert.Equal(t, len(values), CountedSamples(zones)+gap)
}

func samplesOf(zones []ZoneTime) []int {
	out := make([]int, len(zones))
	for i, z := range zones {
		out[i] = z.Samples
	}
	return out
}
