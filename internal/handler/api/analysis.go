package api

import (
	"github.com/labstack/echo/v4"

	"LoserLab/internal/domain/models"
	"LoserLab/internal/service/ratelimit"
	"LoserLab/internal/services/scoring"
	"LoserLab/internal/usecase"
	xhttp "LoserLab/pkg/http"
	applogger "LoserLab/pkg/logger"
)

type AnalysisHandler struct {
	jobs      *usecase.JobManager
	models    *usecase.ModelsUseCase
	rl        *ratelimit.Limiter
	holdYears []int
	l         *applogger.Logger
}

func NewAnalysisHandler(l *applogger.Logger, jobs *usecase.JobManager, mu *usecase.ModelsUseCase, rl *ratelimit.Limiter, holdYears []int) *AnalysisHandler {
	return &AnalysisHandler{jobs: jobs, models: mu, rl: rl, holdYears: holdYears, l: l}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/analysis")
	g.POST("/run", h.Run)
	g.GET("/:id/status", h.Status)
	g.GET("/:id/results", h.Results)
	g.POST("/evaluate", h.Evaluate)
}

// Run starts a backtest whose picks are re-scored with the chosen model and
// filtered at its threshold.
func (h *AnalysisHandler) Run(c echo.Context) error {
	defer observe(c, "analysis.run")()

	if !allow(c, h.rl, "analysis.run") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many runs, try again later"))
	}
	req := &models.AnalysisRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	runReq, err := req.RunRequest()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if len(runReq.HoldYears) == 0 {
		runReq.HoldYears = h.holdYears
	}

	ctx := c.Request().Context()
	formula, threshold, err := h.models.ResolveFormula(ctx, req.ModelID, req.Weights, nil, req.Threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	status, err := h.jobs.StartAnalysis(runReq, formula, threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	h.l.Info("analysis run started",
		applogger.String("run_id", status.RunID),
		applogger.String("model_id", req.ModelID),
		applogger.Float64("threshold", threshold),
	)
	return xhttp.AcceptedResponse(c, status)
}

func (h *AnalysisHandler) Status(c echo.Context) error {
	st, err := h.jobs.Status(c.Param("id"))
	if err != nil || st.Type != models.RunTypeAnalysis {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("analysis run %s not found", c.Param("id")))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *AnalysisHandler) Results(c echo.Context) error {
	defer observe(c, "analysis.results")()

	res, err := h.jobs.Analysis(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// Evaluate compares a completed run's picks passing the threshold under the
// given weights or formula against all of its picks.
func (h *AnalysisHandler) Evaluate(c echo.Context) error {
	defer observe(c, "analysis.evaluate")()

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	formula, threshold, err := h.models.ResolveFormula(ctx, "", req.Weights, req.Formula, req.Threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	ev, err := h.jobs.Evaluate(ctx, req.RunID, req.HoldYears, scoring.ForFormula(formula), threshold)
	if err != nil {
		h.l.Warn("evaluate failed", applogger.String("run_id", req.RunID), applogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, ev)
}
