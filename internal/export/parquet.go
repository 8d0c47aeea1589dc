// Package export writes reviewed rides as Parquet tables for offline analysis.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"ride-review/internal/report"
)

const (
	RidesFile = "rides.parquet"
	LapsFile  = "laps.parquet"

	parallelism = 4
)

type rideRow struct {
	Name          string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sport         string  `parquet:"name=sport, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StartUTC      string  `parquet:"name=start_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8"`
	DurationS     float64 `parquet:"name=duration_s, type=DOUBLE"`
	Samples       int64   `parquet:"name=samples, type=INT64"`
	DistanceM     float64 `parquet:"name=distance_m, type=DOUBLE"`
	ElevationM    float64 `parquet:"name=elevation_gain_m, type=DOUBLE"`
	Calories      float64 `parquet:"name=calories, type=DOUBLE"`
	Kilojoules    float64 `parquet:"name=kilojoules, type=DOUBLE"`
	AvgPowerW     float64 `parquet:"name=avg_power_w, type=DOUBLE"`
	MaxPowerW     float64 `parquet:"name=max_power_w, type=DOUBLE"`
	NPW           float64 `parquet:"name=np_w, type=DOUBLE"`
	IF            float64 `parquet:"name=intensity_factor, type=DOUBLE"`
	TSS           float64 `parquet:"name=tss, type=DOUBLE"`
	VI            float64 `parquet:"name=variability_index, type=DOUBLE"`
	AvgHRBPM      float64 `parquet:"name=avg_hr_bpm, type=DOUBLE"`
	MaxHRBPM      float64 `parquet:"name=max_hr_bpm, type=DOUBLE"`
	HRDriftPct    float64 `parquet:"name=hr_drift_pct, type=DOUBLE"`
	AvgCadenceRPM float64 `parquet:"name=avg_cadence_rpm, type=DOUBLE"`
	MaxCadenceRPM float64 `parquet:"name=max_cadence_rpm, type=DOUBLE"`
	AvgSpeedMPS   float64 `parquet:"name=avg_speed_mps, type=DOUBLE"`
	EF            float64 `parquet:"name=efficiency_factor, type=DOUBLE"`
	DecouplingPct float64 `parquet:"name=decoupling_pct, type=DOUBLE"`
}

type lapRow struct {
	RideName      string  `parquet:"name=ride_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	RideStartUTC  string  `parquet:"name=ride_start_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Index         int64   `parquet:"name=lap_index, type=INT64"`
	StartUTC      string  `parquet:"name=start_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8"`
	ElapsedS      float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	TimerS        float64 `parquet:"name=timer_s, type=DOUBLE"`
	DistanceM     float64 `parquet:"name=distance_m, type=DOUBLE"`
	AvgPowerW     float64 `parquet:"name=avg_power_w, type=DOUBLE"`
	MaxPowerW     float64 `parquet:"name=max_power_w, type=DOUBLE"`
	NPW           float64 `parquet:"name=np_w, type=DOUBLE"`
	IF            float64 `parquet:"name=intensity_factor, type=DOUBLE"`
	TSS           float64 `parquet:"name=tss, type=DOUBLE"`
	AvgHRBPM      float64 `parquet:"name=avg_hr_bpm, type=DOUBLE"`
	MaxHRBPM      float64 `parquet:"name=max_hr_bpm, type=DOUBLE"`
	AvgCadenceRPM float64 `parquet:"name=avg_cadence_rpm, type=DOUBLE"`
	AvgSpeedMPS   float64 `parquet:"name=avg_speed_mps, type=DOUBLE"`
	AscentM       float64 `parquet:"name=ascent_m, type=DOUBLE"`
	Trigger       string  `parquet:"name=trigger, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Intensity     string  `parquet:"name=intensity, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// WriteRides writes one row per ride
func WriteRides(w io.Writer, rides []report.Ride) error {
	return writeBuffered(w, new(rideRow), rideRows(rides))
}

// WriteLaps writes one row per lap across all rides
func WriteLaps(w io.Writer, rides []report.Ride) error {
	return writeBuffered(w, new(lapRow), lapRows(rides))
}

// WriteDir writes rides.parquet and laps.parquet into dir, creating it if needed
func WriteDir(dir string, rides []report.Ride) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, RidesFile), new(rideRow), rideRows(rides)); err != nil {
		return fmt.Errorf("writing %s: %w", RidesFile, err)
	}
	if err := writeFile(filepath.Join(dir, LapsFile), new(lapRow), lapRows(rides)); err != nil {
		return fmt.Errorf("writing %s: %w", LapsFile, err)
	}
	return nil
}

func writeBuffered[T any](w io.Writer, schema *T, rows []T) error {
	fw := parquetbuffer.NewBufferFile()
	if err := write(fw, schema, rows); err != nil {
		return err
	}
	_, err := w.Write(fw.Bytes())
	return err
}

func writeFile[T any](path string, schema *T, rows []T) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	return write(fw, schema, rows)
}

// write streams rows through a Snappy-compressed writer and closes fw
func write[T any](fw source.ParquetFile, schema *T, rows []T) error {
	pw, err := writer.NewParquetWriter(fw, schema, parallelism)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func rideRows(rides []report.Ride) []rideRow {
	rows := make([]rideRow, 0, len(rides))
	for _, r := range rides {
		m := r.Metrics
		row := rideRow{
			Name:          m.Name,
			Sport:         m.Sport,
			StartUTC:      isoUTC(m.StartTime),
			DurationS:     m.Duration,
			Samples:       int64(m.SampleCount),
			DistanceM:     valueOrNaN(m.Distance),
			ElevationM:    valueOrNaN(m.ElevationGain),
			Calories:      valueOrNaN(m.Calories),
			Kilojoules:    valueOrNaN(m.Kilojoules),
			AvgPowerW:     valueOrNaN(m.AvgPower),
			MaxPowerW:     valueOrNaN(m.MaxPower),
			NPW:           valueOrNaN(m.NormalizedPower),
			IF:            valueOrNaN(m.IntensityFactor),
			TSS:           valueOrNaN(m.TSS),
			VI:            valueOrNaN(m.VariabilityIndex),
			AvgHRBPM:      valueOrNaN(m.AvgHeartRate),
			MaxHRBPM:      valueOrNaN(m.MaxHeartRate),
			HRDriftPct:    valueOrNaN(m.HRDrift),
			AvgCadenceRPM: valueOrNaN(m.AvgCadence),
			MaxCadenceRPM: valueOrNaN(m.MaxCadence),
			AvgSpeedMPS:   valueOrNaN(m.AvgSpeed),
			EF:            valueOrNaN(m.EfficiencyFactor),
			DecouplingPct: math.NaN(),
		}
		if m.Decoupling != nil {
			row.DecouplingPct = m.Decoupling.HRPerWattDrift
		}
		rows = append(rows, row)
	}
	return rows
}

func lapRows(rides []report.Ride) []lapRow {
	var rows []lapRow
	for _, r := range rides {
		for _, l := range r.Laps {
			rows = append(rows, lapRow{
				RideName:      r.Metrics.Name,
				RideStartUTC:  isoUTC(r.Metrics.StartTime),
				Index:         int64(l.Index),
				StartUTC:      isoUTC(l.StartTime),
				ElapsedS:      l.ElapsedTime,
				TimerS:        l.TimerTime,
				DistanceM:     l.Distance,
				AvgPowerW:     l.AvgPower,
				MaxPowerW:     l.MaxPower,
				NPW:           l.NormalizedPower,
				IF:            l.IntensityFactor,
				TSS:           l.TSS,
				AvgHRBPM:      l.AvgHeartRate,
				MaxHRBPM:      l.MaxHeartRate,
				AvgCadenceRPM: l.AvgCadence,
				AvgSpeedMPS:   l.AvgSpeed,
				AscentM:       l.Ascent,
				Trigger:       l.Trigger,
				Intensity:     l.Intensity,
			})
		}
	}
	return rows
}

func isoUTC(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
