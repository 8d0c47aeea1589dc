package analysis

import (
	"math"
	"sort"

	"ride-review/internal/activity"
)

// DecouplingOptions tunes the aerobic decoupling calculation
type DecouplingOptions struct {
	MinMainMinutes   float64 // minimum main set length
	WarmupGuess      int     // seconds trimmed from the start when there are no laps
	CooldownGuess    int     // seconds trimmed from the end when there are no laps
	PowerMin         float64 // coasting cutoff
	HRMin            float64
	HRMax            float64
	TrimFraction     float64 // tail fraction dropped from each end for the robust mean
	MaxPowerVariance float64 // coefficient of variation above which the main set is too unsteady
}

// DefaultDecouplingOptions returns the standard decoupling settings
func DefaultDecouplingOptions() DecouplingOptions {
	return DecouplingOptions{
		MinMainMinutes:   10,
		WarmupGuess:      600,
		CooldownGuess:    300,
		PowerMin:         30,
		HRMin:            60,
		HRMax:            220,
		TrimFraction:     0.02,
		MaxPowerVariance: 0.35,
	}
}

// Decoupling describes power:HR drift over the main set of a ride
type Decoupling struct {
	HRPerWattDrift float64 // % change of HR per watt, positive means HR rose against power
	EFDrift        float64 // % change of power per heartbeat, usually negative when HR rises
	SegmentSeconds int
	StartIndex     int
	EndIndex       int
	MeanPower      float64
	MeanHR         float64
	PowerCV        float64
}

// Assessment describes the drift in words
func (d *Decoupling) Assessment() string {
	switch drift := d.HRPerWattDrift; {
	case drift < 3:
		return "Excellent aerobic base"
	case drift < 5:
		return "Good aerobic fitness"
	case drift < 8:
		return "Developing aerobic base"
	case drift < 12:
		return "Needs more endurance riding"
	default:
		return "Aerobic system needs work"
	}
}

// AerobicDecoupling compares the first and second half of a ride's main set,
// after trimming warmup and cooldown. With at least two laps the trims come from
// the first and last lap, otherwise fixed guesses are used.
// Returns nil when the ride is too short, too unsteady or lacks paired power and HR.
func AerobicDecoupling(series activity.Series, laps []activity.Lap, maxHR float64, opts DecouplingOptions) *Decoupling {
	n := len(series)
	minSamples := int(opts.MinMainMinutes * 60)
	if n == 0 || n < minSamples {
		return nil
	}

	start, end := mainSetBounds(n, laps, maxHR, opts)
	if end-start < minSamples {
		return nil
	}

	var watts, hr []float64
	for _, s := range series[start:end] {
		if s.Power == nil || s.HeartRate == nil {
			continue
		}
		p, h := *s.Power, *s.HeartRate
		if p < opts.PowerMin || h < opts.HRMin || h > opts.HRMax {
			continue
		}
		watts = append(watts, p)
		hr = append(hr, h)
	}
	if float64(len(watts)) < float64(minSamples)*0.6 {
		return nil
	}

	meanP, _ := mean(watts)
	var variance float64
	for _, p := range watts {
		variance += (p - meanP) * (p - meanP)
	}
	cv := math.Sqrt(variance/float64(len(watts))) / math.Max(1, meanP)
	if cv > opts.MaxPowerVariance {
		return nil
	}

	half := len(watts) / 2
	p1 := trimmedMean(watts[:half], opts.TrimFraction)
	p2 := trimmedMean(watts[half:], opts.TrimFraction)
	h1 := trimmedMean(hr[:half], opts.TrimFraction)
	h2 := trimmedMean(hr[half:], opts.TrimFraction)
	if p1 == 0 || p2 == 0 || h1 == 0 || h2 == 0 {
		return nil
	}

	meanHR, _ := mean(hr)
	return &Decoupling{
		HRPerWattDrift: round2(100 * ((h2/p2)/(h1/p1) - 1)),
		EFDrift:        round2(100 * ((p2/h2)/(p1/h1) - 1)),
		SegmentSeconds: end - start,
		StartIndex:     start,
		EndIndex:       end,
		MeanPower:      math.Round(meanP),
		MeanHR:         math.Round(meanHR),
		PowerCV:        round2(cv),
	}
}

func mainSetBounds(n int, laps []activity.Lap, maxHR float64, opts DecouplingOptions) (start, end int) {
	clamp := func(sec float64) int {
		i := int(math.Round(sec))
		return max(0, min(n, i))
	}

	if len(laps) < 2 {
		start = min(n, opts.WarmupGuess)
		end = max(start, n-opts.CooldownGuess)
		return start, end
	}

	end = n
	first := laps[0]
	if first.ElapsedTime >= 600 && first.ElapsedTime <= 1200 {
		start = clamp(first.ElapsedTime)
	}

	last := laps[len(laps)-1]
	z1 := 110.0
	if maxHR > 0 {
		z1 = maxHR * 0.6
	}
	cooldown := (last.AvgHeartRate > 0 && last.AvgHeartRate < z1) ||
		(last.AvgPower > 0 && last.MaxPower > 0 && (last.MaxPower-last.AvgPower)/math.Max(1, last.MaxPower) > 0.3) ||
		(last.ElapsedTime > 0 && last.ElapsedTime <= 900)
	if cooldown && last.ElapsedTime > 0 {
		end = clamp(float64(n) - last.ElapsedTime)
		end = min(n, max(end, start+60))
	}
	return start, end
}

func trimmedMean(values []float64, frac float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	cut := int(math.Floor(float64(len(sorted)) * frac))
	kept := sorted[cut : len(sorted)-cut]
	m, _ := mean(kept)
	return m
}
