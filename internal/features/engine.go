// Package features implements the Feature Engine: calendar, statistical,
// lag, and window feature construction over the ingested table, finalized
// into a dense feature table persisted under a fresh model version.
package features

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"salesfc/internal/artifacts"
	"salesfc/internal/config"
	apperrors "salesfc/internal/errors"
	"salesfc/internal/infrastructure"
	"salesfc/pkg/contracts/domain"
)

// Engine derives the feature table for one pipeline run.
type Engine struct {
	cfg    config.FeaturesConfig
	store  *artifacts.Store
	logger *slog.Logger
}

// NewEngine creates a feature engine over the given artifact store.
func NewEngine(cfg config.FeaturesConfig, store *artifacts.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, store: store, logger: logger}
}

// entityDerived holds the per-entity keyed feature computations.
type entityDerived struct {
	lags    map[time.Time]map[string]float64
	windows map[time.Time]map[string]float64
}

// Build derives all features for the given ingested table and horizon,
// allocates a fresh model version, and persists the finalized feature table
// under it. It returns the new version identifier, the caller-visible handle
// for every later pipeline stage.
func (e *Engine) Build(ctx context.Context, table *domain.Table, horizon int) (string, error) {
	const op = "features.build"
	start := time.Now()

	if horizon <= 0 {
		return "", apperrors.Ef(apperrors.KindConfig, op, "horizon must be positive, got %d", horizon)
	}

	// Work on a copy: the engine must be re-runnable on the same input.
	work := cloneTable(table)

	e.logger.InfoContext(ctx, "starting feature generation",
		slog.Int("horizon", horizon),
		slog.Int("rows", len(work.Rows)))

	if err := applyCalendar(work, e.cfg.Date); err != nil {
		return "", apperrors.E(apperrors.KindConfig, op, err)
	}

	statByEntity, statCols, err := statisticalFeatures(work, e.cfg.Statistical)
	if err != nil {
		return "", apperrors.E(apperrors.KindConfig, op, err)
	}
	for _, col := range statCols {
		if err := work.AddColumn(col); err != nil {
			return "", apperrors.E(apperrors.KindConfig, op, err)
		}
	}

	lagCols := lagColumns(e.cfg.Lags, horizon)
	winCols := windowColumns(e.cfg.Windows, e.cfg.WindowFns, horizon)
	for _, col := range append(append([]string{}, lagCols...), winCols...) {
		if err := work.AddColumn(col); err != nil {
			return "", apperrors.E(apperrors.KindConfig, op, err)
		}
	}

	// Lag and window extraction is independent per entity; fan out across a
	// bounded worker pool. Results are keyed by (entity, date), so merge
	// order never depends on completion order.
	ids := work.EntityIDs()
	rowsByEntity := make(map[string][]domain.Observation, len(ids))
	for _, id := range ids {
		rowsByEntity[id] = work.EntityRows(id)
	}

	derived := make(map[string]*entityDerived, len(ids))
	for _, id := range ids {
		derived[id] = &entityDerived{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rows := rowsByEntity[id]
			derived[id].lags = lagFeatures(rows, e.cfg.Lags, horizon)
			derived[id].windows = windowFeatures(rows, e.cfg.Windows, e.cfg.WindowFns, horizon)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", apperrors.E(apperrors.KindData, op, err)
	}

	// Merge on (entity, date) keys and drop rows with unresolved features:
	// the earliest rows of each entity, where lag or window history is
	// insufficient, fall away here.
	final := &domain.Table{Columns: work.Columns}
	survivors := make(map[string]bool)
	for _, id := range ids {
		d := derived[id]
		for _, row := range rowsByEntity[id] {
			lags := d.lags[row.Date]
			wins := d.windows[row.Date]
			if len(lags) < len(lagCols) || len(wins) < len(winCols) {
				continue
			}
			for col, v := range statByEntity[id] {
				row.Values[col] = v
			}
			for col, v := range lags {
				row.Values[col] = v
			}
			for col, v := range wins {
				row.Values[col] = v
			}
			final.Rows = append(final.Rows, row)
			survivors[id] = true
		}
	}

	if len(final.Rows) == 0 {
		return "", apperrors.Ef(apperrors.KindData, op,
			"no entity has enough history for horizon %d with the configured lags and windows", horizon)
	}

	version, err := e.store.NewVersion()
	if err != nil {
		return "", err
	}
	if err := e.store.SaveTable(version, final); err != nil {
		return "", err
	}

	infrastructure.EntitiesProcessed.Set(float64(len(survivors)))
	infrastructure.ObserveStage("features", start)

	e.logger.InfoContext(ctx, "feature generation complete",
		slog.String("version", version),
		slog.Int("rows", len(final.Rows)),
		slog.Int("entities", len(survivors)),
		slog.Int("columns", len(final.Columns)))
	return version, nil
}

// cloneTable deep-copies a table so feature construction never mutates the
// caller's rows.
func cloneTable(t *domain.Table) *domain.Table {
	out := &domain.Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([]domain.Observation, len(t.Rows))
	for i, row := range t.Rows {
		values := make(map[string]float64, len(row.Values))
		for k, v := range row.Values {
			values[k] = v
		}
		out.Rows[i] = domain.Observation{ID: row.ID, Date: row.Date, Values: values}
	}
	return out
}
