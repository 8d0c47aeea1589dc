package analysis

import (
	"errors"
	"fmt"
	"time"

	"ride-review/internal/activity"
)

// ErrInvalidThreshold is returned when FTP or max HR is not positive
var ErrInvalidThreshold = errors.New("thresholds must be positive")

// Thresholds are the athlete's normalizing constants
type Thresholds struct {
	FTP   float64 // watts
	MaxHR float64 // bpm
}

// Metrics is the computed record for one activity.
// Pointer fields are nil when their inputs were absent.
type Metrics struct {
	Name      string
	Sport     string
	StartTime time.Time

	Duration      float64 // seconds
	SampleCount   int
	Distance      *float64
	ElevationGain *float64
	Calories      *float64
	Kilojoules    *float64

	AvgPower         *float64
	MaxPower         *float64
	NormalizedPower  *float64
	IntensityFactor  *float64
	TSS              *float64
	VariabilityIndex *float64

	AvgHeartRate *float64
	MaxHeartRate *float64
	HRDrift      *float64 // percent

	AvgCadence *float64
	MaxCadence *float64
	AvgSpeed   *float64

	EfficiencyFactor *float64

	HRZones    []ZoneTime
	PowerZones []ZoneTime
	PowerCurve []CurvePoint
	Decoupling *Decoupling
}

// Engine computes activity and lap metrics against fixed thresholds
type Engine struct {
	thresholds Thresholds
	decoupling DecouplingOptions
}

// NewEngine creates an engine for the given thresholds
func NewEngine(t Thresholds) (*Engine, error) {
	if t.FTP <= 0 || t.MaxHR <= 0 {
		return nil, fmt.Errorf("ftp=%v max_hr=%v: %w", t.FTP, t.MaxHR, ErrInvalidThreshold)
	}
	return &Engine{thresholds: t, decoupling: DefaultDecouplingOptions()}, nil
}

// Thresholds returns the engine's thresholds
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Compute derives the metrics record for a series and its summary.
// Summary values win over derived ones. Fails on non-monotonic timestamps.
func (e *Engine) Compute(series activity.Series, summary activity.Summary) (*Metrics, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("activity %q: %w", summary.Name, err)
	}

	ftp := e.thresholds.FTP
	n := len(series)
	power := series.Values(activity.Power)
	hr := series.Values(activity.HeartRate)
	cadence := series.Values(activity.Cadence)

	m := &Metrics{
		Name:          summary.Name,
		Sport:         summary.Sport,
		StartTime:     summary.StartTime,
		Duration:      duration(summary, n),
		SampleCount:   n,
		Distance:      summary.Distance,
		ElevationGain: summary.ElevationGain,
		Calories:      summary.Calories,
		Kilojoules:    summary.Kilojoules,
	}

	m.AvgPower = prefer(summary.AvgPower, func() (float64, bool) { return mean(power) })
	m.MaxPower = prefer(summary.MaxPower, func() (float64, bool) { return maxOf(power) })
	m.NormalizedPower = prefer(summary.NormalizedPower, func() (float64, bool) { return NormalizedPower(power) })
	m.AvgHeartRate = prefer(summary.AvgHeartRate, func() (float64, bool) { return mean(hr) })
	m.MaxHeartRate = prefer(summary.MaxHeartRate, func() (float64, bool) { return maxOf(hr) })
	m.AvgCadence = prefer(summary.AvgCadence, func() (float64, bool) { return mean(cadence) })
	m.MaxCadence = prefer(summary.MaxCadence, func() (float64, bool) { return maxOf(cadence) })
	m.AvgSpeed = optional(mean(series.Values(activity.Speed)))

	if m.NormalizedPower != nil {
		np := *m.NormalizedPower
		m.IntensityFactor = activity.Float(IntensityFactor(np, ftp))
		if m.AvgPower != nil && *m.AvgPower > 0 {
			m.VariabilityIndex = activity.Float(np / *m.AvgPower)
		}
	}

	switch {
	case summary.RelativeEffort != nil:
		m.TSS = activity.Float(*summary.RelativeEffort)
	case m.NormalizedPower != nil && n > 0:
		m.TSS = activity.Float(TrainingStress(float64(n), *m.NormalizedPower, ftp))
	}

	m.HRDrift = hrDrift(series)

	if m.NormalizedPower != nil && m.AvgHeartRate != nil && *m.AvgHeartRate != 0 {
		m.EfficiencyFactor = activity.Float(*m.NormalizedPower / *m.AvgHeartRate)
	}

	if len(hr) > 0 {
		m.HRZones = ClassifyZones(hr, e.thresholds.MaxHR, HRBands)
	}
	if len(power) > 0 {
		m.PowerZones = ClassifyZones(power, ftp, PowerBands)
		m.PowerCurve = PowerCurve(series, CurveWindows)
	}

	m.Decoupling = AerobicDecoupling(series, nil, e.thresholds.MaxHR, e.decoupling)

	return m, nil
}

// ComputeActivity computes ride metrics and lap records for a whole activity.
// Lap boundaries are used to trim warmup and cooldown for decoupling.
func (e *Engine) ComputeActivity(a *activity.Activity) (*Metrics, []activity.Lap, error) {
	m, err := e.Compute(a.Series, a.Summary)
	if err != nil {
		return nil, nil, err
	}
	laps, err := e.ComputeLaps(a.Laps, a.Series)
	if err != nil {
		return nil, nil, err
	}
	if len(laps) >= 2 {
		m.Decoupling = AerobicDecoupling(a.Series, laps, e.thresholds.MaxHR, e.decoupling)
	}
	return m, laps, nil
}

func duration(summary activity.Summary, n int) float64 {
	switch {
	case summary.ElapsedTime != nil:
		return *summary.ElapsedTime
	case summary.TimerTime != nil:
		return *summary.TimerTime
	default:
		return float64(n)
	}
}

// hrDrift compares mean HR over the second half of the series to the first half
func hrDrift(series activity.Series) *float64 {
	mid := len(series) / 2
	first, ok := mean(series[:mid].Values(activity.HeartRate))
	if !ok || first == 0 {
		return nil
	}
	second, ok := mean(series[mid:].Values(activity.HeartRate))
	if !ok {
		return nil
	}
	return activity.Float((second - first) / first * 100)
}
