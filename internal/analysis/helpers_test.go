package analysis

import (
	"time"

	"ride-review/internal/activity"
)

var rideStart = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 {
	return &v
}

// constantSeries builds n one-second samples at fixed power and heart rate.
// A zero value leaves the channel absent.
func constantSeries(n int, watts, bpm float64) activity.Series {
	series := make(activity.Series, n)
	for i := range series {
		series[i].Time = rideStart.Add(time.Duration(i) * time.Second)
		if watts > 0 {
			series[i].Power = floatPtr(watts)
		}
		if bpm > 0 {
			series[i].HeartRate = floatPtr(bpm)
		}
	}
	return series
}

func powerSeries(watts ...float64) activity.Series {
	series := make(activity.Series, len(watts))
	for i, w := range watts {
		series[i] = activity.Sample{
			Time:  rideStart.Add(time.Duration(i) * time.Second),
			Power: floatPtr(w),
		}
	}
	return series
}

func newTestEngine(ftp, maxHR float64) *Engine {
	e, err := NewEngine(Thresholds{FTP: ftp, MaxHR: maxHR})
	if err != nil {
		panic(err)
	}
	return e
}
