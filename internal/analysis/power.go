package analysis

import "math"

// NormalizedPower returns the fourth root of the mean fourth power of the values.
// Returns false when there are no values.
func NormalizedPower(watts []float64) (float64, bool) {
	if len(watts) == 0 {
		return 0, false
	}
	var sum float64
	for _, w := range watts {
		sq := w * w
		sum += sq * sq
	}
	// a constant series must return its own value exactly
	return math.Sqrt(math.Sqrt(sum / float64(len(watts)))), true
}

// IntensityFactor is normalized power as a fraction of FTP
func IntensityFactor(np, ftp float64) float64 {
	return np / ftp
}

// TrainingStress returns TSS for a duration in seconds at a normalized power.
// One hour at FTP is 100.
func TrainingStress(seconds, np, ftp float64) float64 {
	return seconds * (np * np) / (ftp * ftp * 3600) * 100
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

func maxOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

// optional returns a pointer to v when ok, nil otherwise
func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// prefer returns the authoritative value when present, otherwise the derived one
func prefer(authoritative *float64, derive func() (float64, bool)) *float64 {
	if authoritative != nil {
		v := *authoritative
		return &v
	}
	return optional(derive())
}
