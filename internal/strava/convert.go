package strava

import (
	"strconv"
	"time"

	"ride-review/internal/activity"
)

// ToActivity converts a detailed activity, its streams and laps into the
// source-neutral activity bundle. Missing streams are treated as empty.
func ToActivity(detail *Activity, streams *Streams, laps []Lap) *activity.Activity {
	start := detail.StartDate.UTC()

	a := &activity.Activity{
		Summary: activity.Summary{
			ID:              strconv.FormatInt(detail.ID, 10),
			Name:            detail.Name,
			Sport:           detail.Sport(),
			StartTime:       start,
			ElapsedTime:     seconds(detail.ElapsedTime),
			TimerTime:       seconds(detail.MovingTime),
			Distance:        activity.Float(detail.Distance),
			ElevationGain:   activity.Float(detail.TotalElevationGain),
			Calories:        detail.Calories,
			Kilojoules:      detail.Kilojoules,
			AvgPower:        detail.AverageWatts,
			MaxPower:        detail.MaxWatts,
			NormalizedPower: detail.WeightedAverageWatts,
			AvgHeartRate:    detail.AverageHeartrate,
			MaxHeartRate:    detail.MaxHeartrate,
			AvgCadence:      detail.AverageCadence,
			RelativeEffort:  detail.SufferScore,
		},
		Source: "strava:" + strconv.FormatInt(detail.ID, 10),
	}

	n := streams.Len()
	if n > 0 {
		a.Series = make(activity.Series, n)
		for i := range a.Series {
			offset := float64(i)
			if streams.Time != nil && i < len(streams.Time.Data) {
				offset = streams.Time.Data[i]
			}
			a.Series[i] = activity.Sample{
				Time:        start.Add(time.Duration(offset * float64(time.Second))),
				Power:       at(streams.Watts, i),
				HeartRate:   at(streams.Heartrate, i),
				Cadence:     at(streams.Cadence, i),
				Speed:       at(streams.VelocitySmooth, i),
				Temperature: at(streams.Temp, i),
				Altitude:    at(streams.Altitude, i),
			}
		}
	}

	for i, lap := range laps {
		a.Laps = append(a.Laps, activity.Lap{
			Index:        i,
			StartTime:    lap.StartDate.UTC(),
			ElapsedTime:  float64(lap.ElapsedTime),
			TimerTime:    float64(lap.MovingTime),
			Distance:     lap.Distance,
			AvgPower:     lap.AverageWatts,
			AvgHeartRate: lap.AverageHeartrate,
			MaxHeartRate: lap.MaxHeartrate,
			AvgCadence:   lap.AverageCadence,
			AvgSpeed:     lap.AverageSpeed,
			Ascent:       lap.TotalElevationGain,
			Trigger:      "manual",
			Intensity:    "active",
		})
	}
	return a
}

func seconds(v int) *float64 {
	if v <= 0 {
		return nil
	}
	return activity.Float(float64(v))
}
