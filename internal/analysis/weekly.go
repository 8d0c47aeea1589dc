package analysis

import (
	"errors"
	"time"
)

// ErrEmptyInput is returned when aggregating zero records
var ErrEmptyInput = errors.New("no metrics to aggregate")

// ErrUndefinedAggregate is returned for a mean over an empty subset
var ErrUndefinedAggregate = errors.New("aggregate undefined over empty subset")

// Weekly holds totals and standout rides for a set of activities
type Weekly struct {
	Rides          int
	TotalDuration  float64 // seconds
	TotalDistance  float64 // meters
	TotalTSS       float64
	TotalElevation float64 // meters

	// MeanIntensityFactor is the mean over rides with IF > 0, nil when there are none
	MeanIntensityFactor *float64
	RidesWithIF         int

	// Longest and Hardest point into the aggregated records
	Longest *Metrics
	Hardest *Metrics
}

// MeanIF returns the mean intensity factor, or ErrUndefinedAggregate when no ride had one
func (w *Weekly) MeanIF() (float64, error) {
	if w.MeanIntensityFactor == nil {
		return 0, ErrUndefinedAggregate
	}
	return *w.MeanIntensityFactor, nil
}

// Aggregate folds per-ride metrics into weekly totals.
// Ties for longest and hardest go to the first record encountered.
func Aggregate(records []*Metrics) (*Weekly, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	w := &Weekly{Rides: len(records)}
	var ifSum float64

	for _, r := range records {
		w.TotalDuration += r.Duration
		w.TotalDistance += value(r.Distance)
		w.TotalTSS += value(r.TSS)
		w.TotalElevation += value(r.ElevationGain)

		if r.IntensityFactor != nil && *r.IntensityFactor > 0 {
			ifSum += *r.IntensityFactor
			w.RidesWithIF++
		}

		if w.Longest == nil || r.Duration > w.Longest.Duration {
			w.Longest = r
		}
		if r.TSS != nil && (w.Hardest == nil || *r.TSS > *w.Hardest.TSS) {
			w.Hardest = r
		}
	}

	if w.RidesWithIF > 0 {
		m := ifSum / float64(w.RidesWithIF)
		w.MeanIntensityFactor = &m
	}
	return w, nil
}

// InRange returns the records starting within [start, end], inclusive at both ends
func InRange(records []*Metrics, start, end time.Time) []*Metrics {
	var out []*Metrics
	for _, r := range records {
		if r.StartTime.Before(start) || r.StartTime.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
