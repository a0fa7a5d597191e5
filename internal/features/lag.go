package features

import (
	"fmt"
	"time"

	"salesfc/pkg/contracts/domain"
)

// Lag features never use the raw base lags: at forecast time only data older
// than the horizon exists, so every base lag L is shifted to horizon+L before
// it is applied. A forecast for horizon h therefore only ever consumes target
// information at least h days stale.

// lagColumn names the feature derived from base lag L under a horizon.
func lagColumn(horizon, baseLag int) string {
	return fmt.Sprintf("%s_lag_%d", domain.TargetColumn, horizon+baseLag)
}

// lagColumns returns the lag feature columns in configuration order.
func lagColumns(baseLags []int, horizon int) []string {
	cols := make([]string, len(baseLags))
	for i, l := range baseLags {
		cols[i] = lagColumn(horizon, l)
	}
	return cols
}

// lagFeatures computes the horizon-shifted lag features for one entity's
// date-sorted rows. The result maps each date to its resolvable lag columns;
// a column is absent when the entity has no observation horizon+L days back.
// The target column itself is never part of the output.
func lagFeatures(rows []domain.Observation, baseLags []int, horizon int) map[time.Time]map[string]float64 {
	history := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		history[r.Date] = r.Values[domain.TargetColumn]
	}

	out := make(map[time.Time]map[string]float64, len(rows))
	for _, r := range rows {
		values := make(map[string]float64, len(baseLags))
		for _, l := range baseLags {
			shift := horizon + l
			if v, ok := history[r.Date.AddDate(0, 0, -shift)]; ok {
				values[lagColumn(horizon, l)] = v
			}
		}
		out[r.Date] = values
	}
	return out
}
