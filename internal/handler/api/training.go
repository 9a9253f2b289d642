package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"LoserLab/internal/domain/models"
	"LoserLab/internal/service/metrics"
	"LoserLab/internal/service/ratelimit"
	"LoserLab/internal/usecase"
	xhttp "LoserLab/pkg/http"
	applogger "LoserLab/pkg/logger"
	"LoserLab/pkg/util"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TrainingHandler serves backtest runs: submission, polling, results, CSV
// export and a progress stream.
type TrainingHandler struct {
	jobs      *usecase.JobManager
	rl        *ratelimit.Limiter
	holdYears []int
	l         *applogger.Logger
}

func NewTrainingHandler(l *applogger.Logger, jobs *usecase.JobManager, rl *ratelimit.Limiter, holdYears []int) *TrainingHandler {
	metrics.Register()
	return &TrainingHandler{jobs: jobs, rl: rl, holdYears: holdYears, l: l}
}

func (h *TrainingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/training")
	g.POST("/run", h.Run)
	g.GET("/runs", h.Runs)
	g.GET("/:id/status", h.Status)
	g.GET("/:id/results", h.Results)
	g.GET("/:id/export", h.Export)
	g.GET("/:id/progress/ws", h.ProgressWS)
	g.DELETE("/:id", h.Delete)
}

// allow applies the per-client run submission limit.
func allow(c echo.Context, rl *ratelimit.Limiter, endpoint string) bool {
	if rl == nil || rl.Allow(c.RealIP()) {
		return true
	}
	metrics.RateLimited.WithLabelValues(endpoint).Inc()
	return false
}

// observe records latency and failures of one endpoint once the response is written.
func observe(c echo.Context, endpoint string) func() {
	start := time.Now()
	return func() { metrics.Observe(endpoint, start, c.Response().Status) }
}

func (h *TrainingHandler) Run(c echo.Context) error {
	defer observe(c, "training.run")()

	if !allow(c, h.rl, "training.run") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many runs, try again later"))
	}
	req := &models.TrainingRunRequest{}
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

	status, err := h.jobs.StartTraining(runReq)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	h.l.Info("training run started",
		applogger.String("run_id", status.RunID),
		applogger.String("start", req.StartDate),
		applogger.String("end", req.EndDate),
		applogger.Int("top_k", runReq.TopK),
	)
	return xhttp.AcceptedResponse(c, status)
}

func (h *TrainingHandler) Runs(c echo.Context) error {
	runs := h.jobs.List()
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}

func (h *TrainingHandler) Status(c echo.Context) error {
	st, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *TrainingHandler) Results(c echo.Context) error {
	defer observe(c, "training.results")()

	run, err := h.jobs.Result(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *TrainingHandler) Delete(c echo.Context) error {
	defer observe(c, "training.delete")()

	if err := h.jobs.Delete(c.Param("id")); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.NoContentResponse(c)
}

// Export writes a completed run's picks as CSV, one return and one benchmark
// column per holding period. Missing values are empty cells.
func (h *TrainingHandler) Export(c echo.Context) error {
	defer observe(c, "training.export")()
	id := c.Param("id")
	run, err := h.jobs.Result(c.Request().Context(), id)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=run_%s.csv", id))
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := writePicksCSV(w, run); err != nil {
		h.l.Error("csv export failed", applogger.String("run_id", id), applogger.Error(err))
		return nil
	}
	w.Flush()
	return w.Error()
}

func writePicksCSV(w *csv.Writer, run *models.RunResult) error {
	header := []string{
		"loser_date", "ticker", "daily_loss_pct", "rank", "industry", "dividend_yield",
		"volume", "purchase_date", "purchase_price", "confidence_score",
	}
	for _, y := range run.Request.HoldYears {
		header = append(header, fmt.Sprintf("return_%dy", y), fmt.Sprintf("benchmark_%dy", y))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, p := range run.Picks {
		row := []string{
			util.FormatDate(p.LoserDate),
			p.Ticker,
			formatFloat(p.DailyLossPct),
			strconv.Itoa(p.Rank),
			p.Industry,
			formatFloat(p.DividendYield),
			strconv.FormatInt(p.Volume, 10),
			"",
			formatOptional(p.PurchasePrice),
			formatFloat(p.ConfidenceScore),
		}
		if p.PurchaseDate != nil {
			row[7] = util.FormatDate(*p.PurchaseDate)
		}
		for _, y := range run.Request.HoldYears {
			ret, rok := p.ReturnFor(y)
			bench, bok := p.BenchmarkFor(y)
			row = append(row, optionalCell(ret, rok), optionalCell(bench, bok))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ProgressWS streams progress events until the run ends or the client leaves.
func (h *TrainingHandler) ProgressWS(c echo.Context) error {
	events, cancel, err := h.jobs.Subscribe(c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	// Reader goroutine notices client close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case p, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					time.Now().Add(wsWriteTimeout))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(p); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optionalCell(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return formatFloat(v)
}
