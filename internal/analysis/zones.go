package analysis

import "math"

// Band is a labeled fraction-of-threshold range, lower bound inclusive and upper bound exclusive
type Band struct {
	Label string
	Low   float64
	High  float64
}

// Contains reports whether a threshold fraction falls in the band
func (b Band) Contains(pct float64) bool {
	return pct >= b.Low && pct < b.High
}

// HRBands are heart rate zones as a fraction of max HR.
// Anything at or above max HR lands in no band.
var HRBands = []Band{
	{"Z1 (<60%)", 0, 0.6},
	{"Z2 (60-70%)", 0.6, 0.7},
	{"Z3 (70-80%)", 0.7, 0.8},
	{"Z4 (80-90%)", 0.8, 0.9},
	{"Z5 (90-100%)", 0.9, 1.0},
}

// PowerBands are power zones as a fraction of FTP.
// The bands leave gaps at 0.75-0.76, 0.90-0.91 and 1.05-1.06; values there are not counted.
var PowerBands = []Band{
	{"Z1 (<55%)", 0, 0.55},
	{"Z2 (55-75%)", 0.55, 0.75},
	{"Z3 (76-90%)", 0.76, 0.90},
	{"Z4 (91-105%)", 0.91, 1.05},
	{"Z5 (106-120%)", 1.06, 1.20},
	{"Z6+ (>120%)", 1.20, math.Inf(1)},
}

// ZoneTime is the time spent in one band
type ZoneTime struct {
	Band
	Samples int
	Minutes float64 // Samples / 60, rounded to 0.1
}

// ClassifyZones buckets values by their fraction of threshold.
// Every band is returned, including empty ones, in band order.
func ClassifyZones(values []float64, threshold float64, bands []Band) []ZoneTime {
	zones := make([]ZoneTime, len(bands))
	for i, b := range bands {
		zones[i].Band = b
	}
	if threshold <= 0 {
		return zones
	}

	for _, v := range values {
		pct := v / threshold
		for i := range zones {
			if zones[i].Contains(pct) {
				zones[i].Samples++
				break
			}
		}
	}

	for i := range zones {
		zones[i].Minutes = round1(float64(zones[i].Samples) / 60)
	}
	return zones
}

// CountedSamples returns the number of samples that landed in some band
func CountedSamples(zones []ZoneTime) int {
	total := 0
	for _, z := range zones {
		total += z.Samples
	}
	return total
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
