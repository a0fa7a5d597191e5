package train

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

func newTrainStore(t *testing.T) *artifacts.Store {
	t.Helper()
	base := t.TempDir()
	return artifacts.NewStore(config.PathsConfig{
		InterimDir: base + "/interim",
		ModelsDir:  base + "/models",
	}, nil)
}

func TestTrainPersistsModelAndContainers(t *testing.T) {
	store := newTrainStore(t)
	table := featureTable(map[string]int{"1_GROCERY I": 200, "2_BEVERAGES": 150})
	version, err := store.NewVersion()
	require.NoError(t, err)
	require.NoError(t, store.SaveTable(version, table))

	trainer := NewTrainer(trainCfg(), store, nil)
	require.NoError(t, trainer.Train(context.Background(), version))

	reg, err := store.LoadModel(version)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Trees)
	assert.Equal(t, 2+1+2, reg.NumFeatures, "two target lags, one future covariate, two statics")

	yTrain, err := store.LoadSeriesSet(version, artifacts.YTrain)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_GROCERY I", "2_BEVERAGES"}, yTrain.IDs())
	assert.Equal(t, 172, yTrain["1_GROCERY I"].Len())

	yHoldout, err := store.LoadSeriesSet(version, artifacts.YHoldout)
	require.NoError(t, err)
	assert.Equal(t, 28, yHoldout["1_GROCERY I"].Len())

	covTrain, err := store.LoadFrameSet(version, artifacts.FutureCovTrain)
	require.NoError(t, err)
	assert.Equal(t, []string{"onpromotion"}, covTrain["1_GROCERY I"].Columns)

	_, err = store.LoadFrameSet(version, artifacts.FutureCovHoldout)
	require.NoError(t, err)
}

func TestTrainLearnsTrend(t *testing.T) {
	store := newTrainStore(t)
	table := featureTable(map[string]int{"1_GROCERY I": 300})
	version, err := store.NewVersion()
	require.NoError(t, err)
	require.NoError(t, store.SaveTable(version, table))

	cfg := trainCfg()
	cfg.Trees = 50
	trainer := NewTrainer(cfg, store, nil)
	require.NoError(t, trainer.Train(context.Background(), version))

	// The synthetic target is a linear ramp, so the fit should track the
	// lagged target closely. Predict the day after the training window.
	reg, err := store.LoadModel(version)
	require.NoError(t, err)
	yTrain, err := store.LoadSeriesSet(version, artifacts.YTrain)
	require.NoError(t, err)
	covTrain, err := store.LoadFrameSet(version, artifacts.FutureCovTrain)
	require.NoError(t, err)

	series := yTrain["1_GROCERY I"]
	last := series.EndDate()
	vec := FeatureVector(cfg, series, covTrain["1_GROCERY I"], last)
	require.NotNil(t, vec)
	pred, err := reg.Predict(vec)
	require.NoError(t, err)
	actual, _ := series.ValueAt(last)
	assert.InDelta(t, actual, pred, 25, "prediction stays near the ramp")
}

func TestTrainInsufficientLagHistory(t *testing.T) {
	store := newTrainStore(t)
	table := featureTable(map[string]int{"1_GROCERY I": 60})
	version, err := store.NewVersion()
	require.NoError(t, err)
	require.NoError(t, store.SaveTable(version, table))

	cfg := trainCfg()
	cfg.TargetLags = []int{365}
	trainer := NewTrainer(cfg, store, nil)

	err = trainer.Train(context.Background(), version)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindData))
}

func TestTrainMissingFeatureTable(t *testing.T) {
	store := newTrainStore(t)
	trainer := NewTrainer(trainCfg(), store, nil)

	err := trainer.Train(context.Background(), "20990101T000000_deadbeef")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifact))
}

func TestFeatureVectorLayout(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	series := &domain.Series{
		ID:     "e",
		Static: map[string]float64{"store_nbr": 5, "cluster": 13},
	}
	frame := &domain.Frame{ID: "e", Columns: []string{"onpromotion"}}
	for i := 0; i < 10; i++ {
		date := start.AddDate(0, 0, i)
		series.Points = append(series.Points, domain.Point{Date: date, Value: float64(100 + i)})
		frame.Dates = append(frame.Dates, date)
		frame.Rows = append(frame.Rows, []float64{float64(i)})
	}
	cfg := trainCfg()

	at := start.AddDate(0, 0, 9)
	vec := FeatureVector(cfg, series, frame, at)
	require.NotNil(t, vec)
	// lags 1 and 7, then the date's covariates, then the statics.
	assert.Equal(t, []float64{108, 102, 9, 5, 13}, vec)

	// A date whose lag-7 falls before the series start cannot be built.
	assert.Nil(t, FeatureVector(cfg, series, frame, start.AddDate(0, 0, 3)))

	// A date beyond the frame span cannot be built either.
	assert.Nil(t, FeatureVector(cfg, series, frame, start.AddDate(0, 0, 30)))
}
