package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrend(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, LoadTrend(nil, day))
		_, ok := CurrentLoad(nil, day)
		assert.False(t, ok)
	})

	t.Run("fills rest days through until", func(t *testing.T) {
		loads := []DailyLoad{
			{Date: day.Add(18 * time.Hour), TSS: 50},
			{Date: day.Add(7 * time.Hour), TSS: 50},
		}
		trend := LoadTrend(loads, day.AddDate(0, 0, 6))
		require.Len(t, trend, 7)

		// both rides sum into day one
		assert.InDelta(t, 100*2.0/43.0, trend[0].CTL, 1e-9)
		assert.InDelta(t, 100*2.0/8.0, trend[0].ATL, 1e-9)
		for i := 1; i < len(trend); i++ {
			assert.Less(t, trend[i].ATL, trend[i-1].ATL)
			assert.InDelta(t, trend[i].CTL-trend[i].ATL, trend[i].TSB, 1e-12)
		}
	})

	t.Run("constant daily load converges toward the load", func(t *testing.T) {
		var loads []DailyLoad
		for i := 0; i < 200; i++ {
			loads = append(loads, DailyLoad{Date: day.AddDate(0, 0, i), TSS: 60})
		}
		current, ok := CurrentLoad(loads, day.AddDate(0, 0, 199))
		require.True(t, ok)
		assert.InDelta(t, 60, current.CTL, 0.1)
		assert.InDelta(t, 60, current.ATL, 0.01)
		assert.InDelta(t, 0, current.TSB, 0.1)
	})
}

func TestFormDescription(t *testing.T) {
	tests := []struct {
		tsb  float64
		want string
	}{
		{30, "Very fresh (possibly detrained)"},
		{15, "Fresh and ready to race"},
		{5, "Neutral - good for training"},
		{-5, "Slightly fatigued"},
		{-20, "Tired but building fitness"},
		{-40, "Very fatigued - rest needed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormDescription(tt.tsb))
	}
}
