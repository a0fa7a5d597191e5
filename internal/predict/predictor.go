// Package predict implements the Prediction Engine: recursive multi-step
// forecasting over the trained model's artifacts.
package predict

import (
	"context"
	"log/slog"
	"time"

	"salesfc/internal/artifacts"
	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/internal/infrastructure"
	"salesfc/internal/model"
	"salesfc/internal/train"
	"salesfc/pkg/contracts/domain"
)

// Predictor produces length-horizon forecasts for every trained entity and
// persists them under the run's model version.
type Predictor struct {
	cfg    config.TrainConfig
	store  *artifacts.Store
	logger *slog.Logger
}

// NewPredictor creates a predictor over the given artifact store.
func NewPredictor(cfg config.TrainConfig, store *artifacts.Store, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{cfg: cfg, store: store, logger: logger}
}

// Predict loads the version's model, training series, and holdout
// covariates, forecasts the configured horizon for each entity, and persists
// the forecast set. Forecasting is recursive: each predicted day is appended
// to the entity's history so that short target lags resolve against earlier
// predictions rather than unavailable actuals.
func (p *Predictor) Predict(ctx context.Context, version string) error {
	const op = "predict.forecast"
	start := time.Now()
	horizon := p.cfg.ForecastHorizon

	reg, err := p.store.LoadModel(version)
	if err != nil {
		return err
	}
	yTrain, err := p.store.LoadSeriesSet(version, artifacts.YTrain)
	if err != nil {
		return err
	}
	futureCov, err := p.store.LoadFrameSet(version, artifacts.FutureCovHoldout)
	if err != nil {
		return err
	}

	preds := make(domain.SeriesSet)
	for _, id := range yTrain.IDs() {
		series := yTrain[id]
		frame, ok := futureCov[id]
		if !ok {
			return apperrors.Ef(apperrors.KindData, op,
				"entity %s has no holdout covariates", id)
		}
		if frame.Len() < horizon {
			return apperrors.Ef(apperrors.KindData, op,
				"entity %s holdout covariates cover %d days, horizon needs %d",
				id, frame.Len(), horizon)
		}

		forecast, err := p.forecastEntity(reg, series, frame, horizon)
		if err != nil {
			return apperrors.E(apperrors.KindData, op, err)
		}
		preds[id] = forecast
	}

	if len(preds) == 0 {
		return apperrors.Ef(apperrors.KindData, op, "no entity could be forecast")
	}
	if err := p.store.SaveSeriesSet(version, artifacts.YPreds, preds); err != nil {
		return err
	}

	infrastructure.ObserveStage("predict", start)
	p.logger.InfoContext(ctx, "forecast complete",
		slog.String("version", version),
		slog.Int("entities", len(preds)),
		slog.Int("horizon", horizon))
	return nil
}

// forecastEntity rolls the model forward one day at a time from the day
// after the entity's training window ends.
func (p *Predictor) forecastEntity(reg *model.Regressor, series *domain.Series, frame *domain.Frame, horizon int) (*domain.Series, error) {
	// Extend a copy of the history so recursion never mutates the loaded
	// training container.
	extended := &domain.Series{
		ID:     series.ID,
		Points: append([]domain.Point(nil), series.Points...),
		Static: series.Static,
	}
	forecast := &domain.Series{ID: series.ID, Static: series.Static}

	date := series.EndDate().AddDate(0, 0, 1)
	for step := 0; step < horizon; step++ {
		vec := train.FeatureVector(p.cfg, extended, frame, date)
		if vec == nil {
			return nil, apperrors.Ef(apperrors.KindData, "predict.forecast",
				"entity %s cannot resolve features on %s", series.ID, date.Format(domain.DateLayout))
		}
		value, err := reg.Predict(vec)
		if err != nil {
			return nil, err
		}
		point := domain.Point{Date: date, Value: value}
		extended.Points = append(extended.Points, point)
		forecast.Points = append(forecast.Points, point)
		date = date.AddDate(0, 0, 1)
	}
	return forecast, nil
}
