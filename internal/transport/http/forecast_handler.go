package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"salesfc/internal/artifacts"
	apierrors "salesfc/internal/errors"
	"salesfc/pkg/contracts/domain"
)

// ForecastHandler serves read-side access to persisted run artifacts:
// version listings, per-version entity listings, and per-entity forecasts.
type ForecastHandler struct {
	store  *artifacts.Store
	logger *slog.Logger
}

// NewForecastHandler creates a forecast handler over the artifact store.
func NewForecastHandler(store *artifacts.Store, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{
		store:  store,
		logger: logger.With(slog.String("handler", "forecast")),
	}
}

// Routes returns the forecast routes, mounted under /api/v1/forecast.
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{version}", func(r chi.Router) {
		r.Get("/", h.ListEntities)
		r.Get("/{entity}", h.GetForecast)
	})
	return r
}

// PointResponse is one dated value in a series payload.
type PointResponse struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ForecastResponse is one entity's forecast, optionally paired with the
// holdout actuals covering the same dates.
type ForecastResponse struct {
	Version  string             `json:"version"`
	Entity   string             `json:"entity"`
	Horizon  int                `json:"horizon"`
	Forecast []PointResponse    `json:"forecast"`
	Actuals  []PointResponse    `json:"actuals,omitempty"`
	Static   map[string]float64 `json:"static,omitempty"`
}

// VersionsResponse lists the available model versions, newest first.
type VersionsResponse struct {
	Versions []string `json:"versions"`
}

// EntitiesResponse lists the entities forecast under one version.
type EntitiesResponse struct {
	Version  string   `json:"version"`
	Entities []string `json:"entities"`
}

// ListVersions handles GET /api/v1/versions.
func (h *ForecastHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.store.ListVersions()
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, VersionsResponse{Versions: versions})
}

// ListEntities handles GET /api/v1/forecast/{version}.
func (h *ForecastHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	preds, err := h.store.LoadSeriesSet(version, artifacts.YPreds)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, EntitiesResponse{Version: version, Entities: preds.IDs()})
}

// GetForecast handles GET /api/v1/forecast/{version}/{entity}. With
// ?actuals=true the holdout series for the same entity rides along.
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	entity := chi.URLParam(r, "entity")

	preds, err := h.store.LoadSeriesSet(version, artifacts.YPreds)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	series, ok := preds[entity]
	if !ok {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.NewAPIError(
			http.StatusNotFound, "NOT_FOUND", "no forecast for entity "+entity)))
		return
	}

	resp := ForecastResponse{
		Version:  version,
		Entity:   entity,
		Horizon:  series.Len(),
		Forecast: toPoints(series),
		Static:   series.Static,
	}

	if r.URL.Query().Get("actuals") == "true" {
		holdout, err := h.store.LoadSeriesSet(version, artifacts.YHoldout)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		if actual, ok := holdout[entity]; ok {
			resp.Actuals = toPoints(actual)
		}
	}
	render.JSON(w, r, resp)
}

func (h *ForecastHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "forecast request failed",
		slog.String("error", err.Error()))
	render.Render(w, r, apierrors.NewErrorResponse(apierrors.APIErrorFrom(err)))
}

func toPoints(s *domain.Series) []PointResponse {
	points := make([]PointResponse, len(s.Points))
	for i, p := range s.Points {
		points[i] = PointResponse{
			Date:  p.Date.Format(domain.DateLayout),
			Value: p.Value,
		}
	}
	return points
}
