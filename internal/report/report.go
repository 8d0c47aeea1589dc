// Package report renders reviewed rides as markdown.
package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ride-review/internal/activity"
	"ride-review/internal/analysis"
	"ride-review/internal/interview"
)

const (
	kmToMi = 0.621371
	mToFt  = 3.28084
	na     = "n/a"
)

// Ride is one reviewed activity with its computed laps
type Ride struct {
	Metrics *analysis.Metrics
	Laps    []activity.Lap
}

// Document is everything that goes into a weekly review
type Document struct {
	Start, End time.Time
	Rides      []Ride
	Weekly     *analysis.Weekly
	// Load is the training load at the end of the range, nil when no history is kept
	Load      *analysis.TrainingLoad
	Interview interview.Answers // nil when the interview was skipped
	Location  *time.Location    // for start times; time.Local when nil
}

// Render writes the weekly review as a fenced markdown block
func Render(w io.Writer, doc Document) error {
	loc := doc.Location
	if loc == nil {
		loc = time.Local
	}

	var b bytes.Buffer
	b.WriteString("```markdown\n# Weekly Cycling Review\n\n")
	if !doc.Start.IsZero() {
		fmt.Fprintf(&b, "Period: %s to %s\n\n", doc.Start.In(loc).Format(time.DateOnly), doc.End.In(loc).Format(time.DateOnly))
	}

	writeWeekly(&b, doc.Weekly, loc)
	if doc.Load != nil {
		writeLoad(&b, doc.Load)
	}

	b.WriteString("## Ride Details\n")
	rides := append([]Ride(nil), doc.Rides...)
	sort.SliceStable(rides, func(i, j int) bool {
		return rides[i].Metrics.StartTime.Before(rides[j].Metrics.StartTime)
	})
	for _, r := range rides {
		b.WriteString("\n")
		writeRide(&b, r, loc)
	}

	b.WriteString("\n## Rider Interview\n")
	if len(doc.Interview) == 0 {
		b.WriteString("_Interview skipped._\n")
	}
	for _, a := range doc.Interview {
		fmt.Fprintf(&b, "- **%s:** %s\n", a.Label, a.Text)
	}
	b.WriteString("```\n")

	_, err := w.Write(b.Bytes())
	return err
}

// RenderActivity writes a single ride without the weekly frame
func RenderActivity(w io.Writer, ride Ride, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	var b bytes.Buffer
	writeRide(&b, ride, loc)
	_, err := w.Write(b.Bytes())
	return err
}

func writeWeekly(b *bytes.Buffer, wk *analysis.Weekly, loc *time.Location) {
	b.WriteString("## Weekly Summary\n")
	if wk == nil {
		b.WriteString("- Total Rides: 0\n\n")
		return
	}

	fmt.Fprintf(b, "- Total Rides: %d\n", wk.Rides)
	fmt.Fprintf(b, "- Total Time: %s\n", FormatDuration(wk.TotalDuration))
	fmt.Fprintf(b, "- Total Distance: %s\n", distance(&wk.TotalDistance))
	fmt.Fprintf(b, "- Total TSS: %.0f\n", wk.TotalTSS)
	fmt.Fprintf(b, "- Elevation Gain: %s\n", elevation(&wk.TotalElevation))

	if meanIF, err := wk.MeanIF(); err == nil {
		fmt.Fprintf(b, "- Average IF: %.2f\n", meanIF)
	} else {
		fmt.Fprintf(b, "- Average IF: %s\n", na)
	}

	if l := wk.Longest; l != nil {
		fmt.Fprintf(b, "- Longest Ride: %s, %s (%s)\n", FormatDuration(l.Duration), km(l.Distance), l.StartTime.In(loc).Format(time.DateOnly))
	}
	if h := wk.Hardest; h != nil {
		fmt.Fprintf(b, "- Hardest Ride: %.0f TSS (%s)\n", *h.TSS, h.StartTime.In(loc).Format(time.DateOnly))
	}
	b.WriteString("\n")
}

func writeLoad(b *bytes.Buffer, load *analysis.TrainingLoad) {
	b.WriteString("## Training Load\n")
	fmt.Fprintf(b, "- Fitness (CTL): %.1f\n", load.CTL)
	fmt.Fprintf(b, "- Fatigue (ATL): %.1f\n", load.ATL)
	fmt.Fprintf(b, "- Form (TSB): %+.1f, %s\n\n", load.TSB, analysis.FormDescription(load.TSB))
}

func writeRide(b *bytes.Buffer, r Ride, loc *time.Location) {
	m := r.Metrics
	start := m.StartTime.In(loc)

	fmt.Fprintf(b, "### %s – %s\n", start.Format(time.DateOnly), m.Name)
	fmt.Fprintf(b, "- Start Time: %s\n", start.Format("15:04"))
	fmt.Fprintf(b, "- Duration: %s\n", FormatDuration(m.Duration))
	fmt.Fprintf(b, "- Distance: %s\n", distance(m.Distance))
	fmt.Fprintf(b, "- Avg Speed: %s\n", speed(m.AvgSpeed))
	fmt.Fprintf(b, "- Avg Power: %s\n", format(m.AvgPower, "%.0fW"))
	fmt.Fprintf(b, "- Max Power: %s\n", format(m.MaxPower, "%.0fW"))
	fmt.Fprintf(b, "- Normalized Power: %s\n", format(m.NormalizedPower, "%.0fW"))
	fmt.Fprintf(b, "- IF: %s\n", format(m.IntensityFactor, "%.2f"))
	fmt.Fprintf(b, "- TSS: %s\n", format(m.TSS, "%.0f"))
	fmt.Fprintf(b, "- Variability Index: %s\n", format(m.VariabilityIndex, "%.2f"))
	fmt.Fprintf(b, "- Avg HR: %s\n", format(m.AvgHeartRate, "%.0f bpm"))
	fmt.Fprintf(b, "- Max HR: %s\n", format(m.MaxHeartRate, "%.0f bpm"))
	fmt.Fprintf(b, "- HR Drift: %s\n", format(m.HRDrift, "%+.1f%%"))
	fmt.Fprintf(b, "- Efficiency Factor: %s\n", format(m.EfficiencyFactor, "%.2f"))
	if d := m.Decoupling; d != nil {
		fmt.Fprintf(b, "- Aerobic Decoupling: %+.2f%% over %s, %s\n", d.HRPerWattDrift, FormatDuration(float64(d.SegmentSeconds)), d.Assessment())
	}
	fmt.Fprintf(b, "- Elevation Gain: %s\n", elevation(m.ElevationGain))
	fmt.Fprintf(b, "- Calories: %s\n", count(m.Calories, ""))
	fmt.Fprintf(b, "- Work: %s\n", count(m.Kilojoules, " kJ"))
	fmt.Fprintf(b, "- Avg Cadence: %s\n", format(m.AvgCadence, "%.0f rpm"))
	fmt.Fprintf(b, "- Max Cadence: %s\n", format(m.MaxCadence, "%.0f rpm"))

	if len(r.Laps) > 0 {
		title := cases.Title(language.English)
		b.WriteString("\n**Laps:**\n")
		for i, lap := range r.Laps {
			fmt.Fprintf(b, "%d. %s – %s, %.0fW avg, %.0fW NP, IF %.2f, TSS %.1f, %.0f bpm avg\n",
				i+1, title.String(lap.Intensity), FormatDuration(lap.Duration()),
				lap.AvgPower, lap.NormalizedPower, lap.IntensityFactor, lap.TSS, lap.AvgHeartRate)
		}
	}

	writeZones(b, "HR Zones", m.HRZones)
	writeZones(b, "Power Zones", m.PowerZones)
	writeCurve(b, m.PowerCurve)
}

func writeZones(b *bytes.Buffer, heading string, zones []analysis.ZoneTime) {
	if analysis.CountedSamples(zones) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s:**\n\n| Zone | Minutes |\n|---|---|\n", heading)
	for _, z := range zones {
		fmt.Fprintf(b, "| %s | %.1f |\n", z.Label, z.Minutes)
	}
}

func writeCurve(b *bytes.Buffer, curve []analysis.CurvePoint) {
	if len(curve) == 0 {
		return
	}
	b.WriteString("\n**Power Curve:**\n\n| Duration | Best Power |\n|---|---|\n")
	watts := make([]float64, len(curve))
	for i, p := range curve {
		fmt.Fprintf(b, "| %s | %.0fW |\n", FormatDuration(float64(p.Seconds)), p.Watts)
		watts[i] = p.Watts
	}
	if len(watts) < 2 {
		return
	}

	chart := asciigraph.Plot(watts,
		asciigraph.Height(8),
		asciigraph.Width(50),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("best power, %s to %s", FormatDuration(float64(curve[0].Seconds)), FormatDuration(float64(curve[len(curve)-1].Seconds)))),
	)
	// indented so it renders as a code block inside the fenced document
	b.WriteString("\n")
	for _, line := range strings.Split(chart, "\n") {
		b.WriteString("    " + line + "\n")
	}
}

// FormatDuration renders seconds as m:ss under an hour and "Hh MMm SSs" above
func FormatDuration(seconds float64) string {
	s := int(seconds)
	if s < 3600 {
		return fmt.Sprintf("%d:%02d", s/60, s%60)
	}
	return fmt.Sprintf("%dh %02dm %02ds", s/3600, (s%3600)/60, s%60)
}

func format(v *float64, layout string) string {
	if v == nil {
		return na
	}
	return fmt.Sprintf(layout, *v)
}

func km(meters *float64) string {
	if meters == nil {
		return na
	}
	return fmt.Sprintf("%.1f km", *meters/1000)
}

func distance(meters *float64) string {
	if meters == nil {
		return na
	}
	k := *meters / 1000
	return fmt.Sprintf("%.1f km (%.1f mi)", k, k*kmToMi)
}

func speed(mps *float64) string {
	if mps == nil {
		return na
	}
	kmh := *mps * 3.6
	return fmt.Sprintf("%.1f km/h (%.1f mph)", kmh, kmh*kmToMi)
}

func elevation(meters *float64) string {
	if meters == nil {
		return na
	}
	return fmt.Sprintf("%.0f m (%.0f ft)", *meters, *meters*mToFt)
}

func count(v *float64, unit string) string {
	if v == nil {
		return na
	}
	return humanize.Comma(int64(math.Round(*v))) + unit
}
