package analysis

import "ride-review/internal/activity"

// CurveWindows are the power-duration curve window lengths in seconds
var CurveWindows = []int{5, 10, 15, 30, 60, 120, 180, 300, 600, 900, 1200, 1800, 2400, 3600}

// CurvePoint is the best mean power held for a window length
type CurvePoint struct {
	Seconds int
	Watts   float64
}

// PowerCurve returns the best trailing rolling mean power for each window.
// A window is skipped when the series is shorter than it; positions whose
// window contains a sample without power do not count.
func PowerCurve(series activity.Series, windows []int) []CurvePoint {
	n := len(series)
	if n == 0 {
		return nil
	}

	// prefix sums of power and of missing samples
	sums := make([]float64, n+1)
	missing := make([]int, n+1)
	for i, s := range series {
		sums[i+1] = sums[i]
		missing[i+1] = missing[i]
		if s.Power != nil {
			sums[i+1] += *s.Power
		} else {
			missing[i+1]++
		}
	}

	var curve []CurvePoint
	for _, w := range windows {
		if w <= 0 || w > n {
			continue
		}
		best, found := 0.0, false
		for end := w; end <= n; end++ {
			if missing[end]-missing[end-w] > 0 {
				continue
			}
			avg := (sums[end] - sums[end-w]) / float64(w)
			if !found || avg > best {
				best, found = avg, true
			}
		}
		if found {
			curve = append(curve, CurvePoint{Seconds: w, Watts: best})
		}
	}
	return curve
}
