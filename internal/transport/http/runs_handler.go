package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "salesfc/internal/errors"
)

// PipelineRunner executes one full forecasting run and returns the model
// version it produced. A positive horizon overrides the configured default.
type PipelineRunner interface {
	Run(ctx context.Context, horizon int) (string, error)
}

// RunsHandler triggers pipeline runs over HTTP.
type RunsHandler struct {
	runner PipelineRunner
	logger *slog.Logger
}

// NewRunsHandler creates a runs handler around the given runner.
func NewRunsHandler(runner PipelineRunner, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		runner: runner,
		logger: logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns the run routes, mounted under /api/v1/runs.
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRun)
	return r
}

// RunRequest optionally overrides the configured forecast horizon.
type RunRequest struct {
	Horizon int `json:"horizon"`
}

// RunResponse reports a completed pipeline run.
type RunResponse struct {
	Version   string `json:"version"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// CreateRun handles POST /api/v1/runs. The run executes synchronously; the
// response carries the version every later forecast query needs. An empty
// body runs with the configured horizon.
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInvalidRequest))
			return
		}
	}
	if req.Horizon < 0 {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.NewAPIError(
			http.StatusBadRequest, "INVALID_REQUEST", "horizon must be positive")))
		return
	}

	h.logger.InfoContext(r.Context(), "pipeline run requested",
		slog.Int("horizon", req.Horizon))

	version, err := h.runner.Run(r.Context(), req.Horizon)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "pipeline run failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.APIErrorFrom(err)))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RunResponse{
		Version:   version,
		ElapsedMS: time.Since(start).Milliseconds(),
	})
}
