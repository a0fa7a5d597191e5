package train

import (
	"context"
	"log/slog"
	"time"

	"salesfc/internal/artifacts"
	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/internal/infrastructure"
	"salesfc/internal/model"
	"salesfc/pkg/contracts/domain"
)

// Trainer fits the single global regressor over every entity's training
// window and persists the model plus the four split containers under the
// run's model version.
type Trainer struct {
	cfg    config.TrainConfig
	store  *artifacts.Store
	logger *slog.Logger
}

// NewTrainer creates a trainer over the given artifact store.
func NewTrainer(cfg config.TrainConfig, store *artifacts.Store, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{cfg: cfg, store: store, logger: logger}
}

// Train loads the version's feature table, splits it at the horizon-derived
// cutoff, fits the global regressor on the pooled training samples, and
// persists the model and split containers.
func (t *Trainer) Train(ctx context.Context, version string) error {
	const op = "train.fit"
	start := time.Now()

	table, err := t.store.LoadTable(version)
	if err != nil {
		return err
	}

	split, err := NewSplitter(t.cfg, t.logger).Split(ctx, table)
	if err != nil {
		return err
	}

	x, y := t.assemble(split)
	if len(y) == 0 {
		return apperrors.Ef(apperrors.KindData, op,
			"no entity has enough training history for target lags %v", t.cfg.TargetLags)
	}

	t.logger.InfoContext(ctx, "fitting model",
		slog.String("version", version),
		slog.Int("samples", len(y)),
		slog.Int("features", len(x[0])))

	reg, err := model.Fit(x, y, model.Options{
		Trees:        t.cfg.Trees,
		MaxDepth:     t.cfg.MaxDepth,
		LearningRate: t.cfg.LearningRate,
		MinLeaf:      t.cfg.MinLeaf,
	})
	if err != nil {
		return apperrors.E(apperrors.KindData, op, err)
	}

	if err := t.store.SaveModel(version, reg); err != nil {
		return err
	}
	if err := t.store.SaveSeriesSet(version, artifacts.YTrain, split.YTrain); err != nil {
		return err
	}
	if err := t.store.SaveFrameSet(version, artifacts.FutureCovTrain, split.FutureCovTrain); err != nil {
		return err
	}
	if err := t.store.SaveSeriesSet(version, artifacts.YHoldout, split.YHoldout); err != nil {
		return err
	}
	if err := t.store.SaveFrameSet(version, artifacts.FutureCovHoldout, split.FutureCovHoldout); err != nil {
		return err
	}

	infrastructure.ObserveStage("train", start)
	t.logger.InfoContext(ctx, "training complete",
		slog.String("version", version),
		slog.Int("trees", len(reg.Trees)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// assemble pools the supervised samples across all entities. One sample per
// entity per training date where every configured target lag resolves:
// lagged target values, then the date's future covariates, then the entity's
// static attributes.
func (t *Trainer) assemble(split *Split) (x [][]float64, y []float64) {
	maxLag := maxOf(t.cfg.TargetLags)
	for _, id := range split.YTrain.IDs() {
		series := split.YTrain[id]
		frame := split.FutureCovTrain[id]
		for i, p := range series.Points {
			if i < maxLag {
				continue
			}
			sample := FeatureVector(t.cfg, series, frame, p.Date)
			if sample == nil {
				continue
			}
			x = append(x, sample)
			y = append(y, p.Value)
		}
	}
	return x, y
}

// FeatureVector builds the regressor input for one entity on one date. The
// target history must cover every configured lag and the frame must cover
// the date itself; otherwise nil is returned. The layout is shared with the
// prediction stage and must stay in sync with assemble.
func FeatureVector(cfg config.TrainConfig, series *domain.Series, frame *domain.Frame, date time.Time) []float64 {
	vec := make([]float64, 0, len(cfg.TargetLags)+len(frame.Columns)+len(cfg.StaticCovCols))
	for _, lag := range cfg.TargetLags {
		v, ok := series.ValueAt(date.AddDate(0, 0, -lag))
		if !ok {
			return nil
		}
		vec = append(vec, v)
	}
	cov, ok := frame.RowAt(date)
	if !ok {
		return nil
	}
	vec = append(vec, cov...)
	for _, col := range cfg.StaticCovCols {
		vec = append(vec, series.Static[col])
	}
	return vec
}

func maxOf(vals []int) int {
	max := 0
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return max
}
