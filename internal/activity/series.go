package activity

import (
	"errors"
	"fmt"
	"time"
)

// ErrNonMonotonic is returned when a series has a timestamp earlier than its predecessor
var ErrNonMonotonic = errors.New("non-monotonic timestamps")

// Channel identifies one measured quantity of a sample
type Channel int

const (
	Power Channel = iota
	HeartRate
	Cadence
	Speed
	Altitude
	Temperature
)

func (c Channel) String() string {
	switch c {
	case Power:
		return "power"
	case HeartRate:
		return "heart_rate"
	case Cadence:
		return "cadence"
	case Speed:
		return "speed"
	case Altitude:
		return "altitude"
	case Temperature:
		return "temperature"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Sample is one time-stamped observation, roughly one per second
type Sample struct {
	Time        time.Time
	Power       *float64 // watts
	HeartRate   *float64 // bpm
	Cadence     *float64 // rpm
	Speed       *float64 // m/s
	Altitude    *float64 // meters
	Temperature *float64 // celsius
}

// Value returns the sample's value for a channel and whether it is defined
func (s Sample) Value(ch Channel) (float64, bool) {
	var p *float64
	switch ch {
	case Power:
		p = s.Power
	case HeartRate:
		p = s.HeartRate
	case Cadence:
		p = s.Cadence
	case Speed:
		p = s.Speed
	case Altitude:
		p = s.Altitude
	case Temperature:
		p = s.Temperature
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Series is an ordered-by-time run of samples
type Series []Sample

// Validate checks that timestamps never go backwards
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Before(s[i-1].Time) {
			return fmt.Errorf("sample %d at %s precedes %s: %w",
				i, s[i].Time.Format(time.RFC3339), s[i-1].Time.Format(time.RFC3339), ErrNonMonotonic)
		}
	}
	return nil
}

// Values returns the defined values of a channel in series order
func (s Series) Values(ch Channel) []float64 {
	var out []float64
	for _, sample := range s {
		if v, ok := sample.Value(ch); ok {
			out = append(out, v)
		}
	}
	return out
}

// Has reports whether any sample defines the channel
func (s Series) Has(ch Channel) bool {
	for _, sample := range s {
		if _, ok := sample.Value(ch); ok {
			return true
		}
	}
	return false
}

// Filter returns the samples that define the channel
func (s Series) Filter(ch Channel) Series {
	out := make(Series, 0, len(s))
	for _, sample := range s {
		if _, ok := sample.Value(ch); ok {
			out = append(out, sample)
		}
	}
	return out
}

// Between returns the samples with start <= t <= end.
// The series must be ordered; the result shares the backing array.
func (s Series) Between(start, end time.Time) Series {
	lo := 0
	for lo < len(s) && s[lo].Time.Before(start) {
		lo++
	}
	hi := lo
	for hi < len(s) && !s[hi].Time.After(end) {
		hi++
	}
	return s[lo:hi]
}

// Start returns the first timestamp, zero for an empty series
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time
}
