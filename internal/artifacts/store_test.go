package artifacts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/internal/model"
	"salesfc/pkg/contracts/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	return NewStore(config.PathsConfig{
		InterimDir: base + "/interim",
		ModelsDir:  base + "/models",
	}, nil)
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewVersionUnique(t *testing.T) {
	store := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		version, err := store.NewVersion()
		require.NoError(t, err)
		assert.False(t, seen[version], "version %s allocated twice", version)
		seen[version] = true
		assert.True(t, store.VersionExists(version))
	}
}

func TestListVersions(t *testing.T) {
	store := newTestStore(t)

	versions, err := store.ListVersions()
	require.NoError(t, err)
	assert.Empty(t, versions)

	v1, err := store.NewVersion()
	require.NoError(t, err)
	v2, err := store.NewVersion()
	require.NoError(t, err)

	versions, err = store.ListVersions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{v1, v2}, versions)
}

func TestTableRoundTrip(t *testing.T) {
	store := newTestStore(t)
	version, err := store.NewVersion()
	require.NoError(t, err)

	table := &domain.Table{
		Columns: []string{"sales", "onpromotion", "dcoilwtico"},
		Rows: []domain.Observation{
			{ID: "1_GROCERY I", Date: day("2017-01-01"), Values: map[string]float64{"sales": 12.5, "onpromotion": 1, "dcoilwtico": 53.01}},
			{ID: "1_GROCERY I", Date: day("2017-01-02"), Values: map[string]float64{"sales": 9.25, "onpromotion": 0, "dcoilwtico": 52.97}},
		},
	}

	require.NoError(t, store.SaveTable(version, table))

	loaded, err := store.LoadTable(version)
	require.NoError(t, err)
	assert.Equal(t, table, loaded)
}

func TestSeriesSetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	version, err := store.NewVersion()
	require.NoError(t, err)

	set := domain.SeriesSet{
		"1_GROCERY I": {
			ID: "1_GROCERY I",
			Points: []domain.Point{
				{Date: day("2017-01-01"), Value: 3.14159265358979},
				{Date: day("2017-01-02"), Value: 0},
			},
			Static: map[string]float64{"store_nbr": 1, "cluster": 13},
		},
	}

	require.NoError(t, store.SaveSeriesSet(version, YTrain, set))

	loaded, err := store.LoadSeriesSet(version, YTrain)
	require.NoError(t, err)
	assert.Equal(t, set, loaded)
}

func TestFrameSetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	version, err := store.NewVersion()
	require.NoError(t, err)

	set := domain.FrameSet{
		"2_BEVERAGES": {
			ID:      "2_BEVERAGES",
			Columns: []string{"day_of_week", "dcoilwtico"},
			Dates:   []time.Time{day("2017-01-01"), day("2017-01-02")},
			Rows:    [][]float64{{6, 53.01}, {0, 52.97}},
			Static:  map[string]float64{"store_nbr": 2},
		},
	}

	require.NoError(t, store.SaveFrameSet(version, FutureCovHoldout, set))

	loaded, err := store.LoadFrameSet(version, FutureCovHoldout)
	require.NoError(t, err)
	assert.Equal(t, set, loaded)
}

func TestModelRoundTrip(t *testing.T) {
	store := newTestStore(t)
	version, err := store.NewVersion()
	require.NoError(t, err)

	reg, err := model.Fit([][]float64{{1}, {2}, {3}, {4}}, []float64{2, 4, 6, 8}, model.Options{Trees: 5, MinLeaf: 1})
	require.NoError(t, err)

	require.NoError(t, store.SaveModel(version, reg))

	loaded, err := store.LoadModel(version)
	require.NoError(t, err)

	want, err := reg.Predict([]float64{2.5})
	require.NoError(t, err)
	got, err := loaded.Predict([]float64{2.5})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingArtifact(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadTable("20990101T000000_dead")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifact))

	_, err = store.LoadModel("20990101T000000_dead")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifact))
}
