package strava

import (
	"strings"
	"time"
)

// Activity represents a Strava activity from the API. The list endpoint and
// the detail endpoint share this shape; the detail response fills more of the
// nullable fields.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	MaxSpeed           float64   `json:"max_speed"`            // m/s
	HasHeartrate       bool      `json:"has_heartrate"`
	DeviceWatts        bool      `json:"device_watts"`

	// nullable, absent when the athlete had no sensor
	AverageWatts         *float64 `json:"average_watts"`
	MaxWatts             *float64 `json:"max_watts"`
	WeightedAverageWatts *float64 `json:"weighted_average_watts"`
	Kilojoules           *float64 `json:"kilojoules"`
	Calories             *float64 `json:"calories"`
	AverageHeartrate     *float64 `json:"average_heartrate"`
	MaxHeartrate         *float64 `json:"max_heartrate"`
	AverageCadence       *float64 `json:"average_cadence"`
	SufferScore          *float64 `json:"suffer_score"`
}

// Sport returns the sport type, falling back to the legacy type field
func (a *Activity) Sport() string {
	if a.SportType != "" {
		return a.SportType
	}
	return a.Type
}

// IsOneOf reports whether the activity's sport is in sports (case-insensitive).
// An empty list matches everything.
func (a *Activity) IsOneOf(sports []string) bool {
	if len(sports) == 0 {
		return true
	}
	sport := a.Sport()
	for _, s := range sports {
		if strings.EqualFold(s, sport) || strings.EqualFold(s, a.Type) {
			return true
		}
	}
	return false
}

// Lap is a lap from /activities/{id}/laps. Strava reports no normalized power
// per lap.
type Lap struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	LapIndex           int       `json:"lap_index"`
	StartDate          time.Time `json:"start_date"`
	ElapsedTime        int       `json:"elapsed_time"`
	MovingTime         int       `json:"moving_time"`
	StartIndex         int       `json:"start_index"`
	EndIndex           int       `json:"end_index"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageWatts       float64   `json:"average_watts"`
	AverageHeartrate   float64   `json:"average_heartrate"`
	MaxHeartrate       float64   `json:"max_heartrate"`
	AverageCadence     float64   `json:"average_cadence"`
}

// Streams represents activity stream data from the API.
// Strava returns streams keyed by type when key_by_type=true. Sensor streams
// may carry nulls where the sensor dropped out.
type Streams struct {
	Time           *StreamData[float64]  `json:"time"`
	Watts          *StreamData[*float64] `json:"watts"`
	Heartrate      *StreamData[*float64] `json:"heartrate"`
	Cadence        *StreamData[*float64] `json:"cadence"`
	VelocitySmooth *StreamData[*float64] `json:"velocity_smooth"`
	Temp           *StreamData[*float64] `json:"temp"`
	Altitude       *StreamData[*float64] `json:"altitude"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the number of samples: the time stream when present, otherwise
// the longest sensor stream.
func (s *Streams) Len() int {
	if s == nil {
		return 0
	}
	if s.Time != nil && len(s.Time.Data) > 0 {
		return len(s.Time.Data)
	}
	n := 0
	for _, stream := range s.sensors() {
		if stream != nil {
			n = max(n, len(stream.Data))
		}
	}
	return n
}

// HasPower returns true if a power stream exists
func (s *Streams) HasPower() bool {
	return s != nil && s.Watts != nil && len(s.Watts.Data) > 0
}

func (s *Streams) sensors() []*StreamData[*float64] {
	return []*StreamData[*float64]{s.Watts, s.Heartrate, s.Cadence, s.VelocitySmooth, s.Temp, s.Altitude}
}

// at returns the i-th value of a stream, nil when the stream is absent or short
func at(stream *StreamData[*float64], i int) *float64 {
	if stream == nil || i >= len(stream.Data) {
		return nil
	}
	return stream.Data[i]
}
