package features

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesfc/internal/artifacts"
	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/pkg/contracts/domain"
)

func engineCfg() config.FeaturesConfig {
	return config.FeaturesConfig{
		Date: config.DateFeaturesConfig{
			Month: true, DayOfWeek: true, IsWeekend: true,
		},
		Statistical: map[string]config.StatSetting{
			"mean": {Enabled: true},
		},
		Lags:      []int{1, 7},
		Windows:   []int{7},
		WindowFns: []string{"mean", "std"},
		Workers:   4,
	}
}

func newEngine(t *testing.T, cfg config.FeaturesConfig) (*Engine, *artifacts.Store) {
	t.Helper()
	base := t.TempDir()
	store := artifacts.NewStore(config.PathsConfig{
		InterimDir: base + "/interim",
		ModelsDir:  base + "/models",
	}, nil)
	return NewEngine(cfg, store, nil), store
}

// ingestedTable builds a synthetic ingested table: per entity, n contiguous
// daily rows with a simple deterministic target.
func ingestedTable(entities map[string]int) *domain.Table {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	table := &domain.Table{Columns: []string{domain.TargetColumn, "onpromotion", "dcoilwtico", "cluster"}}
	for id, n := range entities {
		for i := 0; i < n; i++ {
			table.Rows = append(table.Rows, domain.Observation{
				ID:   id,
				Date: start.AddDate(0, 0, i),
				Values: map[string]float64{
					domain.TargetColumn: float64(i%7) + 10,
					"onpromotion":       float64(i % 2),
					"dcoilwtico":        45.5,
					"cluster":           3,
				},
			})
		}
	}
	table.Sort()
	return table
}

func TestBuildFeatureTable(t *testing.T) {
	engine, store := newEngine(t, engineCfg())
	table := ingestedTable(map[string]int{"1_GROCERY I": 400})

	version, err := engine.Build(context.Background(), table, 28)
	require.NoError(t, err)
	require.NotEmpty(t, version)

	final, err := store.LoadTable(version)
	require.NoError(t, err)

	// Lags shift to 29/35, windows to 35; the first 35 days of the entity
	// are unresolved and dropped.
	assert.Len(t, final.Rows, 400-35)

	for _, col := range []string{
		"month", "day_of_week", "is_weekend", "stat_mean",
		"sales_lag_29", "sales_lag_35",
		"sales_window_35_mean", "sales_window_35_std",
	} {
		assert.True(t, final.HasColumn(col), "missing column %s", col)
	}

	// Every surviving row is fully dense.
	for _, row := range final.Rows {
		for _, col := range final.Columns {
			_, ok := row.Values[col]
			assert.True(t, ok, "row %s/%s missing %s", row.ID, row.Date, col)
		}
	}
}

func TestBuildLeavesInputUntouched(t *testing.T) {
	engine, _ := newEngine(t, engineCfg())
	table := ingestedTable(map[string]int{"1_GROCERY I": 100})
	before := len(table.Columns)

	_, err := engine.Build(context.Background(), table, 28)
	require.NoError(t, err)
	assert.Len(t, table.Columns, before)
	assert.NotContains(t, table.Rows[0].Values, "month")
}

func TestBuildIdempotentAcrossVersions(t *testing.T) {
	engine, store := newEngine(t, engineCfg())
	table := ingestedTable(map[string]int{"1_GROCERY I": 200, "2_GROCERY I": 150})

	v1, err := engine.Build(context.Background(), table, 28)
	require.NoError(t, err)
	v2, err := engine.Build(context.Background(), table, 28)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	t1, err := store.LoadTable(v1)
	require.NoError(t, err)
	t2, err := store.LoadTable(v2)
	require.NoError(t, err)
	assert.Equal(t, t1, t2, "same input and horizon must produce identical feature tables")
}

func TestBuildDropsInsufficientEntity(t *testing.T) {
	engine, store := newEngine(t, engineCfg())
	// Horizon 28 plus max lag 7 means an entity needs more than 35 days of history.
	table := ingestedTable(map[string]int{"short": 30, "long": 400})

	version, err := engine.Build(context.Background(), table, 28)
	require.NoError(t, err, "pipeline succeeds while the short entity contributes nothing")

	final, err := store.LoadTable(version)
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, final.EntityIDs())
}

func TestBuildAllEntitiesInsufficient(t *testing.T) {
	engine, _ := newEngine(t, engineCfg())
	table := ingestedTable(map[string]int{"a": 20, "b": 30})

	_, err := engine.Build(context.Background(), table, 28)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindData))
}

func TestBuildInvalidHorizon(t *testing.T) {
	engine, _ := newEngine(t, engineCfg())
	table := ingestedTable(map[string]int{"a": 100})

	for _, horizon := range []int{0, -5} {
		_, err := engine.Build(context.Background(), table, horizon)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
	}
}

func TestBuildColumnCollision(t *testing.T) {
	engine, _ := newEngine(t, engineCfg())
	table := ingestedTable(map[string]int{"a": 100})
	table.Columns = append(table.Columns, "month")
	for i := range table.Rows {
		table.Rows[i].Values["month"] = 1
	}

	_, err := engine.Build(context.Background(), table, 28)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfig))
}
