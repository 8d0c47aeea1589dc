package analysis

import (
	"sort"
	"time"
)

// Load time constants in days
const (
	ChronicLoadDays = 42
	AcuteLoadDays   = 7
)

// DailyLoad is the stress recorded for one ride
type DailyLoad struct {
	Date time.Time
	TSS  float64
}

// TrainingLoad is fitness, fatigue and form on a day
type TrainingLoad struct {
	Date time.Time
	CTL  float64 // chronic load, "fitness"
	ATL  float64 // acute load, "fatigue"
	TSB  float64 // CTL - ATL, "form"
}

// LoadTrend computes daily CTL/ATL/TSB from the first load through until.
// Days without rides contribute zero stress; several rides on one day are summed.
func LoadTrend(loads []DailyLoad, until time.Time) []TrainingLoad {
	if len(loads) == 0 {
		return nil
	}

	sorted := append([]DailyLoad(nil), loads...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	byDay := make(map[string]float64)
	for _, l := range sorted {
		byDay[l.Date.Format("2006-01-02")] += l.TSS
	}

	ctlDecay := 2.0 / (ChronicLoadDays + 1.0)
	atlDecay := 2.0 / (AcuteLoadDays + 1.0)

	first := dayOf(sorted[0].Date)
	last := dayOf(until)
	if last.Before(first) {
		last = dayOf(sorted[len(sorted)-1].Date)
	}

	var trend []TrainingLoad
	var ctl, atl float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		tss := byDay[d.Format("2006-01-02")]
		ctl += ctlDecay * (tss - ctl)
		atl += atlDecay * (tss - atl)
		trend = append(trend, TrainingLoad{Date: d, CTL: ctl, ATL: atl, TSB: ctl - atl})
	}
	return trend
}

// CurrentLoad returns the last entry of LoadTrend, or false without loads
func CurrentLoad(loads []DailyLoad, until time.Time) (TrainingLoad, bool) {
	trend := LoadTrend(loads, until)
	if len(trend) == 0 {
		return TrainingLoad{}, false
	}
	return trend[len(trend)-1], true
}

// FormDescription describes a training stress balance
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
