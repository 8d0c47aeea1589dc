package analysis

import (
	"fmt"

	"ride-review/internal/activity"
)

// ComputeLap fills in lap IF and TSS.
// A lap that carries its own normalized power uses it directly. Otherwise NP is
// recomputed from the parent samples inside the lap window, both ends included.
// Without either, IF and TSS stay zero. TSS uses timer time only.
func (e *Engine) ComputeLap(lap activity.Lap, parent activity.Series) activity.Lap {
	ftp := e.thresholds.FTP

	if lap.NormalizedPower <= 0 && len(parent) > 0 {
		slice := parent.Between(lap.StartTime, lap.End())
		if np, ok := NormalizedPower(slice.Values(activity.Power)); ok {
			lap.NormalizedPower = np
		}
	}

	if lap.NormalizedPower > 0 {
		lap.IntensityFactor = IntensityFactor(lap.NormalizedPower, ftp)
		lap.TSS = TrainingStress(lap.TimerTime, lap.NormalizedPower, ftp)
	} else {
		lap.IntensityFactor = 0
		lap.TSS = 0
	}
	return lap
}

// ComputeLaps computes every lap against the parent series.
// The input slice is left untouched.
func (e *Engine) ComputeLaps(laps []activity.Lap, parent activity.Series) ([]activity.Lap, error) {
	if len(laps) == 0 {
		return nil, nil
	}
	if err := parent.Validate(); err != nil {
		return nil, fmt.Errorf("lap parent series: %w", err)
	}

	out := make([]activity.Lap, len(laps))
	for i, lap := range laps {
		out[i] = e.ComputeLap(lap, parent)
	}
	return out, nil
}
