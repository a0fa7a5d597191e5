package features

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"salesfc/pkg/contracts/domain"
)

// Window features follow the same horizon-shift rule as lags: a base window W
// becomes horizon+W, and the aggregation runs over the horizon+W days strictly
// before the current row. The window must be fully resolvable; rows with a
// partial window are left unresolved and dropped at finalization.

// windowColumn names the feature for base window W and aggregation fn.
func windowColumn(horizon, baseWindow int, fn string) string {
	return fmt.Sprintf("%s_window_%d_%s", domain.TargetColumn, horizon+baseWindow, fn)
}

// windowColumns returns the window feature columns in configuration order.
func windowColumns(baseWindows []int, fns []string, horizon int) []string {
	var cols []string
	for _, w := range baseWindows {
		for _, fn := range fns {
			cols = append(cols, windowColumn(horizon, w, fn))
		}
	}
	return cols
}

// windowFeatures computes the horizon-shifted rolling aggregations for one
// entity's date-sorted rows, keyed by date.
func windowFeatures(rows []domain.Observation, baseWindows []int, fns []string, horizon int) map[time.Time]map[string]float64 {
	history := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		history[r.Date] = r.Values[domain.TargetColumn]
	}

	out := make(map[time.Time]map[string]float64, len(rows))
	for _, r := range rows {
		values := make(map[string]float64)
		for _, w := range baseWindows {
			size := horizon + w
			window, ok := collectWindow(history, r.Date, size)
			if !ok {
				continue
			}
			for _, fn := range fns {
				values[windowColumn(horizon, w, fn)] = aggregate(window, fn)
			}
		}
		out[r.Date] = values
	}
	return out
}

// collectWindow gathers the size observations strictly preceding date. It
// fails when any day of the span is missing from the entity's history.
func collectWindow(history map[time.Time]float64, date time.Time, size int) ([]float64, bool) {
	window := make([]float64, 0, size)
	for offset := size; offset >= 1; offset-- {
		v, ok := history[date.AddDate(0, 0, -offset)]
		if !ok {
			return nil, false
		}
		window = append(window, v)
	}
	return window, true
}

func aggregate(window []float64, fn string) float64 {
	switch fn {
	case "mean":
		return stat.Mean(window, nil)
	case "max":
		return maxOf(window)
	case "std":
		return sanitize(stat.StdDev(window, nil))
	default:
		return 0
	}
}
