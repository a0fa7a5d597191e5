package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesfc/pkg/contracts/domain"
)

// dailyRows builds one entity's contiguous daily rows with value = day index.
func dailyRows(id string, start time.Time, n int) []domain.Observation {
	rows := make([]domain.Observation, n)
	for i := 0; i < n; i++ {
		rows[i] = domain.Observation{
			ID:     id,
			Date:   start.AddDate(0, 0, i),
			Values: map[string]float64{domain.TargetColumn: float64(i)},
		}
	}
	return rows
}

func TestLagColumns(t *testing.T) {
	assert.Equal(t, []string{"sales_lag_29", "sales_lag_35"}, lagColumns([]int{1, 7}, 28))
}

func TestLagFeaturesHorizonShift(t *testing.T) {
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := dailyRows("a", start, 100)
	horizon := 28

	out := lagFeatures(rows, []int{1, 7}, horizon)

	// The lag value at date d is the raw target at d-(horizon+L) days —
	// never closer than horizon days to the current row.
	for i := 40; i < 100; i++ {
		d := start.AddDate(0, 0, i)
		assert.Equal(t, float64(i-29), out[d]["sales_lag_29"])
		assert.Equal(t, float64(i-35), out[d]["sales_lag_35"])
	}
}

func TestLagFeaturesUnresolvedHead(t *testing.T) {
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := dailyRows("a", start, 40)

	out := lagFeatures(rows, []int{1, 7}, 28)

	// First 29 rows cannot resolve lag 29, first 35 cannot resolve lag 35.
	head := out[start.AddDate(0, 0, 10)]
	assert.Empty(t, head)

	mid := out[start.AddDate(0, 0, 30)]
	require.Contains(t, mid, "sales_lag_29")
	assert.NotContains(t, mid, "sales_lag_35")

	tail := out[start.AddDate(0, 0, 36)]
	assert.Len(t, tail, 2)
}

func TestLagFeaturesDoNotCrossEntities(t *testing.T) {
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	a := dailyRows("a", start, 60)

	// Computing lags for one entity only ever sees that entity's rows; an
	// identically dated entity elsewhere in the table cannot leak in because
	// the computation is given per-entity rows by the engine.
	out := lagFeatures(a, []int{1}, 28)
	d := start.AddDate(0, 0, 50)
	assert.Equal(t, float64(50-29), out[d]["sales_lag_29"])
}

func TestLagFeaturesGapInHistory(t *testing.T) {
	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := dailyRows("a", start, 60)
	// Remove the observation exactly 29 days before day 45.
	var gapped []domain.Observation
	for _, r := range rows {
		if r.Date.Equal(start.AddDate(0, 0, 16)) {
			continue
		}
		gapped = append(gapped, r)
	}

	out := lagFeatures(gapped, []int{1}, 28)
	assert.NotContains(t, out[start.AddDate(0, 0, 45)], "sales_lag_29")
	assert.Contains(t, out[start.AddDate(0, 0, 46)], "sales_lag_29")
}
