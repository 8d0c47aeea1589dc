package fitfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"ride-review/internal/activity"
)

// FIT invalid sentinels
const (
	invalidUint8  = 0xFF
	invalidUint16 = 0xFFFF
	invalidUint32 = 0xFFFFFFFF
	invalidSint8  = 0x7F
)

// DefaultSport is used when a file carries no session sport
const DefaultSport = "cycling"

// DecodeFile decodes a FIT file from disk and names the activity after the file
func DecodeFile(path string) (*activity.Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %w", path, activity.ErrSourceUnavailable, err)
	}
	defer f.Close()

	a, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	a.Summary.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	a.Summary.ID = a.Summary.Name
	a.Source = path
	return a, nil
}

// Decode reads every FIT sequence in r and converts the messages into an activity
func Decode(r io.Reader) (*activity.Activity, error) {
	dec := decoder.New(r)

	var messages []proto.Message
	for dec.Next() {
		fit, err := dec.Decode()
		if err != nil {
			return nil, fmt.Errorf("decoding FIT: %w: %w", activity.ErrSourceUnavailable, err)
		}
		messages = append(messages, fit.Messages...)
	}
	return fromMessages(messages), nil
}

// fromMessages converts decoded messages. Records come before laps and the
// session in a FIT file, so everything is collected before the summary is built.
func fromMessages(messages []proto.Message) *activity.Activity {
	a := &activity.Activity{}
	haveSession := false

	for i := range messages {
		msg := &messages[i]
		switch msg.Num {
		case typedef.MesgNumFileId:
			fileID := mesgdef.NewFileId(msg)
			if a.Created.IsZero() && !fileID.TimeCreated.IsZero() {
				a.Created = fileID.TimeCreated.UTC()
			}

		case typedef.MesgNumRecord:
			if sample, ok := parseRecord(mesgdef.NewRecord(msg)); ok {
				a.Series = append(a.Series, sample)
			}

		case typedef.MesgNumLap:
			lap := parseLap(mesgdef.NewLap(msg))
			lap.Index = len(a.Laps)
			a.Laps = append(a.Laps, lap)

		case typedef.MesgNumSession:
			// only the first session describes the ride
			if !haveSession {
				a.Summary = parseSession(mesgdef.NewSession(msg))
				haveSession = true
			}
		}
	}

	if a.Summary.Sport == "" {
		a.Summary.Sport = DefaultSport
	}
	if a.Summary.StartTime.IsZero() {
		a.Summary.StartTime = a.Series.Start()
	}
	if a.Summary.StartTime.IsZero() {
		a.Summary.StartTime = a.Created
	}
	return a
}

func parseRecord(rec *mesgdef.Record) (activity.Sample, bool) {
	if rec.Timestamp.IsZero() {
		return activity.Sample{}, false
	}

	s := activity.Sample{Time: rec.Timestamp.UTC()}
	if rec.Power != invalidUint16 {
		s.Power = activity.Float(float64(rec.Power))
	}
	if rec.HeartRate != invalidUint8 {
		s.HeartRate = activity.Float(float64(rec.HeartRate))
	}
	if rec.Cadence != invalidUint8 {
		s.Cadence = activity.Float(float64(rec.Cadence))
	}

	// speed in mm/s
	switch {
	case rec.EnhancedSpeed != invalidUint32:
		s.Speed = activity.Float(float64(rec.EnhancedSpeed) / 1000)
	case rec.Speed != invalidUint16:
		s.Speed = activity.Float(float64(rec.Speed) / 1000)
	}

	// altitude stored as 5 * (m + 500)
	switch {
	case rec.EnhancedAltitude != invalidUint32:
		s.Altitude = activity.Float(float64(rec.EnhancedAltitude)/5 - 500)
	case rec.Altitude != invalidUint16:
		s.Altitude = activity.Float(float64(rec.Altitude)/5 - 500)
	}

	if rec.Temperature != invalidSint8 {
		s.Temperature = activity.Float(float64(rec.Temperature))
	}
	return s, true
}

func parseLap(lap *mesgdef.Lap) activity.Lap {
	out := activity.Lap{
		StartTime:       lap.StartTime.UTC(),
		ElapsedTime:     scaled32(lap.TotalElapsedTime, 1000),
		TimerTime:       scaled32(lap.TotalTimerTime, 1000),
		Distance:        scaled32(lap.TotalDistance, 100),
		AvgPower:        scaled16(lap.AvgPower, 1),
		MaxPower:        scaled16(lap.MaxPower, 1),
		NormalizedPower: scaled16(lap.NormalizedPower, 1),
		AvgHeartRate:    scaled8(lap.AvgHeartRate),
		MaxHeartRate:    scaled8(lap.MaxHeartRate),
		AvgCadence:      scaled8(lap.AvgCadence),
		AvgSpeed:        scaled16(lap.AvgSpeed, 1000),
		Ascent:          scaled16(lap.TotalAscent, 1),
		Trigger:         "manual",
		Intensity:       "active",
	}
	if lap.EnhancedAvgSpeed != invalidUint32 {
		out.AvgSpeed = float64(lap.EnhancedAvgSpeed) / 1000
	}
	if lap.LapTrigger != typedef.LapTriggerInvalid {
		out.Trigger = lap.LapTrigger.String()
	}
	if lap.Intensity != typedef.IntensityInvalid {
		out.Intensity = lap.Intensity.String()
	}
	return out
}

func parseSession(session *mesgdef.Session) activity.Summary {
	summary := activity.Summary{
		StartTime:     session.StartTime.UTC(),
		ElapsedTime:   optional32(session.TotalElapsedTime, 1000),
		TimerTime:     optional32(session.TotalTimerTime, 1000),
		Distance:      optional32(session.TotalDistance, 100),
		ElevationGain: optional16(session.TotalAscent),
		Calories:      optional16(session.TotalCalories),
	}
	if session.Sport != typedef.SportInvalid {
		summary.Sport = session.Sport.String()
	}
	return summary
}

func scaled8(v uint8) float64 {
	if v == invalidUint8 {
		return 0
	}
	return float64(v)
}

func scaled16(v uint16, scale float64) float64 {
	if v == invalidUint16 {
		return 0
	}
	return float64(v) / scale
}

func scaled32(v uint32, scale float64) float64 {
	if v == invalidUint32 {
		return 0
	}
	return float64(v) / scale
}

func optional16(v uint16) *float64 {
	if v == invalidUint16 {
		return nil
	}
	return activity.Float(float64(v))
}

func optional32(v uint32, scale float64) *float64 {
	if v == invalidUint32 {
		return nil
	}
	return activity.Float(float64(v) / scale)
}
