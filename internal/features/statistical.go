package features

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"salesfc/internal/config"
	"salesfc/pkg/contracts/domain"
)

// Statistical features are static per entity: each is computed once over the
// entity's full target history and broadcast to all of its rows. The set is
// driven by declarative settings, mirroring a feature-extraction calculator:
// toggle-style features use Enabled, parameterized ones list Params.

// statPrefix namespaces statistical feature columns.
const statPrefix = "stat_"

// toggleStats are the parameterless statistics available to configuration.
var toggleStats = map[string]func([]float64) float64{
	"mean":     func(v []float64) float64 { return stat.Mean(v, nil) },
	"std":      func(v []float64) float64 { return stat.StdDev(v, nil) },
	"variance": func(v []float64) float64 { return stat.Variance(v, nil) },
	"median":   median,
	"min":      minOf,
	"max":      maxOf,
	"skewness": func(v []float64) float64 { return stat.Skew(v, nil) },
	"kurtosis": func(v []float64) float64 { return stat.ExKurtosis(v, nil) },
	"sum": func(v []float64) float64 {
		var s float64
		for _, x := range v {
			s += x
		}
		return s
	},
}

// paramStats are the parameterized statistics available to configuration.
var paramStats = map[string]func([]float64, float64) float64{
	"quantile": func(v []float64, p float64) float64 {
		sorted := append([]float64(nil), v...)
		sort.Float64s(sorted)
		return stat.Quantile(p, stat.Empirical, sorted, nil)
	},
	"autocorr": autocorrelation,
}

// statColumns returns the feature column names a settings map produces, in
// deterministic order.
func statColumns(settings map[string]config.StatSetting) ([]string, error) {
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	var cols []string
	for _, name := range names {
		setting := settings[name]
		switch {
		case len(setting.Params) > 0:
			if _, ok := paramStats[name]; !ok {
				return nil, fmt.Errorf("unknown parameterized statistical feature %q", name)
			}
			for _, p := range setting.Params {
				cols = append(cols, statColumnName(name, &p))
			}
		case setting.Enabled:
			if _, ok := toggleStats[name]; !ok {
				return nil, fmt.Errorf("unknown statistical feature %q", name)
			}
			cols = append(cols, statColumnName(name, nil))
		}
	}
	return cols, nil
}

func statColumnName(name string, param *float64) string {
	if param == nil {
		return statPrefix + name
	}
	return statPrefix + name + "_" + strconv.FormatFloat(*param, 'g', -1, 64)
}

// statisticalFeatures computes the configured statistics per entity. The
// result maps entity id to feature column to value.
func statisticalFeatures(table *domain.Table, settings map[string]config.StatSetting) (map[string]map[string]float64, []string, error) {
	cols, err := statColumns(settings)
	if err != nil {
		return nil, nil, err
	}
	if len(cols) == 0 {
		return map[string]map[string]float64{}, nil, nil
	}

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	byEntity := make(map[string]map[string]float64)
	for _, id := range table.EntityIDs() {
		rows := table.EntityRows(id)
		history := make([]float64, len(rows))
		for i, r := range rows {
			history[i] = r.Values[domain.TargetColumn]
		}

		values := make(map[string]float64, len(cols))
		for _, name := range names {
			setting := settings[name]
			switch {
			case len(setting.Params) > 0:
				fn := paramStats[name]
				for _, p := range setting.Params {
					values[statColumnName(name, &p)] = sanitize(fn(history, p))
				}
			case setting.Enabled:
				values[statColumnName(name, nil)] = sanitize(toggleStats[name](history))
			}
		}
		byEntity[id] = values
	}

	return byEntity, cols, nil
}

// sanitize maps NaN results (e.g. skew of a constant series) to zero so the
// finalized table stays dense.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func median(v []float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func minOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// autocorrelation computes the lag-k autocorrelation of the series.
func autocorrelation(v []float64, lag float64) float64 {
	k := int(lag)
	if k <= 0 || k >= len(v) {
		return 0
	}
	mean := stat.Mean(v, nil)
	var num, den float64
	for i := 0; i < len(v); i++ {
		den += (v[i] - mean) * (v[i] - mean)
	}
	for i := k; i < len(v); i++ {
		num += (v[i] - mean) * (v[i-k] - mean)
	}
	if den == 0 {
		return 0
	}
	return num / den
}
