// Package pipeline wires the dataset, feature, training, and prediction
// stages into a single run that produces one model version end to end.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"salesfc/internal/artifacts"
	"salesfc/internal/config"
	"salesfc/internal/dataset"
	"salesfc/internal/features"
	"salesfc/internal/infrastructure"
	"salesfc/internal/predict"
	"salesfc/internal/train"
)

// Pipeline runs the full forecasting flow over one configuration snapshot.
// The configuration is captured at construction; changing it later never
// affects a pipeline already built.
type Pipeline struct {
	cfg    config.Config
	store  *artifacts.Store
	logger *slog.Logger
}

// New creates a pipeline and its artifact store from the given
// configuration.
func New(cfg config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:    cfg,
		store:  artifacts.NewStore(cfg.Paths, logger),
		logger: logger,
	}
}

// Store exposes the pipeline's artifact store for read-side consumers.
func (p *Pipeline) Store() *artifacts.Store { return p.store }

// Run executes every stage in order and returns the model version the run
// produced. A positive horizon overrides the configured forecast horizon for
// this run only. A failure in any stage aborts the run; artifacts written by
// earlier stages of the same run remain on disk under the version.
func (p *Pipeline) Run(ctx context.Context, horizon int) (string, error) {
	start := time.Now()
	if horizon <= 0 {
		horizon = p.cfg.Train.ForecastHorizon
	}

	p.logger.InfoContext(ctx, "pipeline run starting",
		slog.Int("horizon", horizon))

	version, err := p.run(ctx, horizon)
	if err != nil {
		infrastructure.PipelineRuns.WithLabelValues("failure").Inc()
		return "", err
	}

	infrastructure.PipelineRuns.WithLabelValues("success").Inc()
	p.logger.InfoContext(ctx, "pipeline run complete",
		slog.String("version", version),
		slog.Duration("elapsed", time.Since(start)))
	return version, nil
}

func (p *Pipeline) run(ctx context.Context, horizon int) (string, error) {
	builder := dataset.NewBuilder(p.cfg.Dataset, p.cfg.Paths, p.logger)
	processedPath, err := builder.Build(ctx)
	if err != nil {
		return "", err
	}

	table, err := dataset.LoadProcessed(processedPath)
	if err != nil {
		return "", err
	}

	engine := features.NewEngine(p.cfg.Features, p.store, p.logger)
	version, err := engine.Build(ctx, table, horizon)
	if err != nil {
		return "", err
	}

	trainCfg := p.cfg.Train
	trainCfg.ForecastHorizon = horizon

	trainer := train.NewTrainer(trainCfg, p.store, p.logger)
	if err := trainer.Train(ctx, version); err != nil {
		return "", err
	}

	predictor := predict.NewPredictor(trainCfg, p.store, p.logger)
	if err := predictor.Predict(ctx, version); err != nil {
		return "", err
	}
	return version, nil
}
