package export

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"ride-review/internal/activity"
	"ride-review/internal/analysis"
	"ride-review/internal/report"
)

var start = time.Date(2025, 6, 4, 7, 0, 0, 0, time.UTC)

func rides() []report.Ride {
	withPower := &analysis.Metrics{
		Name:            "Tempo",
		Sport:           "cycling",
		StartTime:       start,
		Duration:        3600,
		SampleCount:     3600,
		AvgPower:        activity.Float(210),
		NormalizedPower: activity.Float(225),
		TSS:             activity.Float(81),
		Decoupling:      &analysis.Decoupling{HRPerWattDrift: 2.5, SegmentSeconds: 1800},
	}
	hrOnly := &analysis.Metrics{
		Name:         "Commute",
		Sport:        "cycling",
		StartTime:    start.Add(-48 * time.Hour),
		Duration:     1200,
		AvgHeartRate: activity.Float(130),
	}
	laps := []activity.Lap{
		{Index: 0, StartTime: start, ElapsedTime: 600, AvgPower: 150, Intensity: "warmup", Trigger: "time"},
		{Index: 1, StartTime: start.Add(10 * time.Minute), ElapsedTime: 3000, AvgPower: 230, Intensity: "active", Trigger: "manual"},
	}
	return []report.Ride{{Metrics: withPower, Laps: laps}, {Metrics: hrOnly}}
}

func TestWriteRidesProducesParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRides(&buf, rides()))

	b := buf.Bytes()
	require.Greater(t, len(b), 8)
	assert.Equal(t, "PAR1", string(b[:4]))
	assert.Equal(t, "PAR1", string(b[len(b)-4:]))
}

func TestWriteLapsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLaps(&buf, nil))
	assert.Equal(t, "PAR1", string(buf.Bytes()[:4]))
}

func TestRideRowsMarkAbsentValues(t *testing.T) {
	rows := rideRows(rides())
	require.Len(t, rows, 2)

	assert.Equal(t, "2025-06-04T07:00:00Z", rows[0].StartUTC)
	assert.Equal(t, 225.0, rows[0].NPW)
	assert.Equal(t, 2.5, rows[0].DecouplingPct)
	assert.True(t, math.IsNaN(rows[0].AvgHRBPM))

	assert.True(t, math.IsNaN(rows[1].NPW))
	assert.True(t, math.IsNaN(rows[1].TSS))
	assert.True(t, math.IsNaN(rows[1].DecouplingPct))
	assert.Equal(t, 130.0, rows[1].AvgHRBPM)
}

func TestWriteDirReadBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteDir(dir, rides()))

	fr, err := local.NewLocalFileReader(filepath.Join(dir, LapsFile))
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(lapRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(2), pr.GetNumRows())
	got := make([]lapRow, 2)
	require.NoError(t, pr.Read(&got))
	assert.Equal(t, "Tempo", got[0].RideName)
	assert.Equal(t, "warmup", got[0].Intensity)
	assert.Equal(t, int64(1), got[1].Index)
	assert.Equal(t, 230.0, got[1].AvgPowerW)

	assert.FileExists(t, filepath.Join(dir, RidesFile))
}
