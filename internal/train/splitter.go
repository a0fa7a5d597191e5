// Package train implements the temporal split and the Training Engine:
// partitioning the feature table into train/holdout containers and fitting
// the single global regressor over all entities.
package train

import (
	"context"
	"log/slog"
	"time"

	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/pkg/contracts/domain"
)

// Split holds the four partitioned containers produced from one feature
// table: per-entity target series and future-covariate frames, for the
// training window and the holdout window.
type Split struct {
	Cutoff           time.Time
	FutureCols       []string
	YTrain           domain.SeriesSet
	FutureCovTrain   domain.FrameSet
	YHoldout         domain.SeriesSet
	FutureCovHoldout domain.FrameSet
}

// Splitter partitions a feature table at the horizon-derived cutoff and
// resolves every column into its covariate role.
type Splitter struct {
	cfg    config.TrainConfig
	logger *slog.Logger
}

// NewSplitter creates a splitter for the given training configuration.
func NewSplitter(cfg config.TrainConfig, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{cfg: cfg, logger: logger}
}

// Split partitions the feature table. The cutoff is the maximum date across
// all entities minus the forecast horizon: rows on or before the cutoff are
// training data, rows after it are holdout. Configured static covariate
// columns are lifted onto each entity's containers; every remaining
// non-target column becomes a future covariate.
func (s *Splitter) Split(ctx context.Context, table *domain.Table) (*Split, error) {
	const op = "train.split"

	if len(table.Rows) == 0 {
		return nil, apperrors.Ef(apperrors.KindData, op, "feature table is empty")
	}

	staticSet := make(map[string]bool, len(s.cfg.StaticCovCols))
	for _, col := range s.cfg.StaticCovCols {
		if !table.HasColumn(col) {
			return nil, apperrors.Ef(apperrors.KindConfig, op,
				"static covariate column %q not present in feature table", col)
		}
		staticSet[col] = true
	}

	futureCols := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		if col == domain.TargetColumn || staticSet[col] {
			continue
		}
		futureCols = append(futureCols, col)
	}

	cutoff := table.MaxDate().AddDate(0, 0, -s.cfg.ForecastHorizon)

	split := &Split{
		Cutoff:           cutoff,
		FutureCols:       futureCols,
		YTrain:           make(domain.SeriesSet),
		FutureCovTrain:   make(domain.FrameSet),
		YHoldout:         make(domain.SeriesSet),
		FutureCovHoldout: make(domain.FrameSet),
	}

	for _, id := range table.EntityIDs() {
		rows := table.EntityRows(id)

		var trainRows, holdoutRows []domain.Observation
		for _, row := range rows {
			if row.Date.After(cutoff) {
				holdoutRows = append(holdoutRows, row)
			} else {
				trainRows = append(trainRows, row)
			}
		}
		// A single global model needs every entity represented in the
		// training window; an entity with no rows before the cutoff would
		// leave the containers misaligned downstream.
		if len(trainRows) == 0 {
			return nil, apperrors.Ef(apperrors.KindData, op,
				"entity %s has no training rows on or before cutoff %s",
				id, cutoff.Format(domain.DateLayout))
		}

		static := make(map[string]float64, len(s.cfg.StaticCovCols))
		for _, col := range s.cfg.StaticCovCols {
			static[col] = trainRows[0].Values[col]
		}

		split.YTrain[id] = buildSeries(id, trainRows, static)
		split.FutureCovTrain[id] = buildFrame(id, trainRows, futureCols, static)
		if len(holdoutRows) > 0 {
			split.YHoldout[id] = buildSeries(id, holdoutRows, static)
			split.FutureCovHoldout[id] = buildFrame(id, holdoutRows, futureCols, static)
		}
	}

	s.logger.InfoContext(ctx, "split complete",
		slog.String("cutoff", cutoff.Format(domain.DateLayout)),
		slog.Int("train_entities", len(split.YTrain)),
		slog.Int("holdout_entities", len(split.YHoldout)),
		slog.Int("future_covariates", len(futureCols)))
	return split, nil
}

// buildSeries assembles a regular daily target series from date-sorted rows,
// zero-filling any missing days inside the entity's span.
func buildSeries(id string, rows []domain.Observation, static map[string]float64) *domain.Series {
	series := &domain.Series{ID: id, Static: static}
	next := rows[0].Date
	for _, row := range rows {
		for next.Before(row.Date) {
			series.Points = append(series.Points, domain.Point{Date: next})
			next = next.AddDate(0, 0, 1)
		}
		series.Points = append(series.Points, domain.Point{Date: row.Date, Value: row.Values[domain.TargetColumn]})
		next = row.Date.AddDate(0, 0, 1)
	}
	return series
}

// buildFrame assembles a regular daily covariate frame from date-sorted rows,
// zero-filling any missing days inside the entity's span.
func buildFrame(id string, rows []domain.Observation, cols []string, static map[string]float64) *domain.Frame {
	frame := &domain.Frame{ID: id, Columns: cols, Static: static}
	next := rows[0].Date
	appendRow := func(date time.Time, values map[string]float64) {
		vals := make([]float64, len(cols))
		for i, col := range cols {
			vals[i] = values[col]
		}
		frame.Dates = append(frame.Dates, date)
		frame.Rows = append(frame.Rows, vals)
	}
	for _, row := range rows {
		for next.Before(row.Date) {
			appendRow(next, nil)
			next = next.AddDate(0, 0, 1)
		}
		appendRow(row.Date, row.Values)
		next = row.Date.AddDate(0, 0, 1)
	}
	return frame
}
