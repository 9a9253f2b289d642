package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LoserLab/internal/domain/models"
	"LoserLab/internal/repository"
	"LoserLab/internal/service/ratelimit"
	"LoserLab/internal/usecase"
	xhttp "LoserLab/pkg/http"
	applogger "LoserLab/pkg/logger"
)

type staticUniverse []models.UniverseSnapshot

func (u staticUniverse) Snapshots(context.Context) ([]models.UniverseSnapshot, error) {
	return u, nil
}

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

// bars builds weekday bars; close drops by dropPct during the first January week
// of 2020 and everything trades at growth from 2021.
func bars(ticker string, dropPct, growth float64) []models.PriceBar {
	var out []models.PriceBar
	for d := day("2019-12-20"); !d.After(day("2022-06-30")); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		o, c := 100.0, 100.0
		switch {
		case !d.Before(day("2021-01-04")):
			o, c = growth, growth
		case !d.Before(day("2020-01-06")) && !d.After(day("2020-01-10")):
			c = 100 * (1 - dropPct/100)
		}
		out = append(out, models.PriceBar{Ticker: ticker, Date: d, Open: o, High: o, Low: c, Close: c, Volume: 1000})
	}
	return out
}

type fixture struct {
	e    *echo.Echo
	jobs *usecase.JobManager
}

func newFixture(t *testing.T, rl *ratelimit.Limiter) *fixture {
	t.Helper()
	ctx := context.Background()

	prices := repository.NewMemoryPriceStore()
	require.NoError(t, prices.StoreBars(ctx, bars("AAA", 10, 150)))
	require.NoError(t, prices.StoreBars(ctx, bars("BBB", 5, 90)))
	require.NoError(t, prices.StoreBars(ctx, bars("SPY", 0, 110)))

	universe := staticUniverse{{EffectiveDate: day("2019-01-01"), Tickers: []string{"AAA", "BBB"}}}
	meta := repository.NewStaticMetadata(map[string]models.Attributes{
		"AAA": {Industry: "technology", DividendYield: 0.4, Volume: 30_000_000},
	})

	store := repository.NewMemoryRunStore()
	bt := usecase.NewBacktester(prices, universe, meta, usecase.WithWorkers(2))
	sink := usecase.NewResultSink(nil, store, nil, usecase.BackendMemory)
	jobs := usecase.NewJobManager(bt, sink, nil, applogger.Nop())
	t.Cleanup(jobs.Shutdown)
	mu := usecase.NewModelsUseCase(store, jobs, models.DefaultThreshold)

	l := applogger.Nop()
	srv := xhttp.NewServer([]xhttp.Handler{
		NewTrainingHandler(l, jobs, rl, []int{1}),
		NewAnalysisHandler(l, jobs, mu, rl, []int{1}),
		NewModelsHandler(l, mu),
		NewDataHandler(l, usecase.NewDataUseCase(universe, meta)),
		NewHealthHandler().Register("run_store", store.Health),
	}, xhttp.WithMetricsPath(""))
	return &fixture{e: srv.Echo(), jobs: jobs}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, rec.Code, env.Status)
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
}

const runBody = `{"start_date":"2020-01-06","end_date":"2020-01-10","top_k":2}`

func (f *fixture) startRun(t *testing.T) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/training/run", runBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var st models.RunStatus
	decode(t, rec, &st)
	require.NotEmpty(t, st.RunID)
	assert.Equal(t, models.RunTypeTraining, st.Type)
	f.jobs.Wait()
	return st.RunID
}

func TestTrainingLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	id := f.startRun(t)

	rec := f.do(http.MethodGet, "/api/training/"+id+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st models.RunStatus
	decode(t, rec, &st)
	assert.Equal(t, models.StatusCompleted, st.Status)
	assert.Equal(t, 100.0, st.Progress)

	rec = f.do(http.MethodGet, "/api/training/"+id+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run models.RunResult
	decode(t, rec, &run)
	assert.Equal(t, []int{1}, run.Request.HoldYears)
	require.NotEmpty(t, run.Picks)
	for _, p := range run.Picks {
		assert.LessOrEqual(t, p.Rank, 2)
	}
	assert.Equal(t, "AAA", run.Picks[0].Ticker)

	rec = f.do(http.MethodGet, "/api/training/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.RunStatus `json:"rows"`
		Total int64              `json:"total"`
	}
	decode(t, rec, &list)
	assert.EqualValues(t, 1, list.Total)

	rec = f.do(http.MethodDelete, "/api/training/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(http.MethodGet, "/api/training/"+id+"/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// results are still served from the run store
	rec = f.do(http.MethodGet, "/api/training/"+id+"/results", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrainingExportCSV(t *testing.T) {
	f := newFixture(t, nil)
	id := f.startRun(t)

	rec := f.do(http.MethodGet, "/api/training/"+id+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), id)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	header := rows[0]
	assert.Equal(t, "loser_date", header[0])
	assert.Equal(t, []string{"return_1y", "benchmark_1y"}, header[len(header)-2:])
	for _, row := range rows[1:] {
		assert.Len(t, row, len(header))
	}
}

func TestTrainingValidation(t *testing.T) {
	f := newFixture(t, nil)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing dates", `{}`, http.StatusBadRequest},
		{"bad date", `{"start_date":"2020/01/06","end_date":"2020-01-10"}`, http.StatusBadRequest},
		{"end before start", `{"start_date":"2020-02-01","end_date":"2020-01-10"}`, http.StatusBadRequest},
		{"top_k too large", `{"start_date":"2020-01-06","end_date":"2020-01-10","top_k":500}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/training/run", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestTrainingUnknownRun(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/api/training/nope/status", "/api/training/nope/results", "/api/training/nope/export"} {
		rec := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/training/nope", "").Code)
}

func TestTrainingRateLimited(t *testing.T) {
	f := newFixture(t, ratelimit.New(1, 1))
	f.startRun(t)
	rec := f.do(http.MethodPost, "/api/training/run", runBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestProgressWebSocket(t *testing.T) {
	f := newFixture(t, nil)
	id := f.startRun(t)

	ts := httptest.NewServer(f.e)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/training/" + id + "/progress/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var p models.Progress
	require.NoError(t, conn.ReadJSON(&p))
	assert.Equal(t, 100.0, p.Percent)

	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.True(t, errors.As(err, &ce), "expected close, got %v", err)
	assert.Equal(t, websocket.CloseNormalClosure, ce.Code)
}

func TestAnalysisRunAndEvaluate(t *testing.T) {
	f := newFixture(t, nil)
	trainID := f.startRun(t)

	rec := f.do(http.MethodPost, "/api/analysis/run", `{"start_date":"2020-01-06","end_date":"2020-01-10","top_k":2,"threshold":50}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var st models.RunStatus
	decode(t, rec, &st)
	assert.Equal(t, models.RunTypeAnalysis, st.Type)
	f.jobs.Wait()

	rec = f.do(http.MethodGet, "/api/analysis/"+st.RunID+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.AnalysisResult
	decode(t, rec, &res)
	assert.Equal(t, 50.0, res.Threshold)
	assert.Equal(t, res.TotalCount, len(res.Run.Picks))
	for _, p := range res.Filtered {
		assert.GreaterOrEqual(t, p.ConfidenceScore, 50.0)
	}

	// a training run has no analysis results
	rec = f.do(http.MethodGet, "/api/analysis/"+trainID+"/results", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/api/analysis/evaluate", `{"run_id":"`+trainID+`","hold_years":1,"threshold":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ev models.Evaluation
	decode(t, rec, &ev)

	rec = f.do(http.MethodPost, "/api/analysis/evaluate", `{"run_id":"missing","hold_years":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisUnknownModel(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/api/analysis/run", `{"start_date":"2020-01-06","end_date":"2020-01-10","scoring_model_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsCRUD(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/models/defaults", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var defs usecase.Defaults
	decode(t, rec, &defs)
	assert.Equal(t, models.DefaultWeights(), defs.Weights)
	assert.Equal(t, models.DefaultThreshold, defs.Threshold)

	rec = f.do(http.MethodPost, "/api/models", `{"name":"tech","weights":{"industry":50,"severity_of_loss":50},"threshold":70}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m models.ScoringModel
	decode(t, rec, &m)
	assert.Equal(t, "tech", m.Name)
	assert.Equal(t, 70.0, m.Threshold)
	assert.Equal(t, 50.0, m.Formula.Weights.Industry)

	rec = f.do(http.MethodGet, "/api/models/"+m.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows []models.ScoringModel `json:"rows"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Rows, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/models", `{}`).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/models/"+m.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/models/"+m.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/models/"+m.ID, "").Code)
}

func TestModelFromTrainingRun(t *testing.T) {
	f := newFixture(t, nil)
	id := f.startRun(t)

	rec := f.do(http.MethodPost, "/api/models", `{"name":"learned","training_run_id":"`+id+`","hold_years":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m models.ScoringModel
	decode(t, rec, &m)
	assert.Equal(t, id, m.TrainingRunID)
	assert.Equal(t, 1, m.Formula.HoldYears)

	rec = f.do(http.MethodPost, "/api/models", `{"name":"learned","training_run_id":"`+id+`","hold_years":7}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/api/data/universe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info usecase.UniverseInfo
	decode(t, rec, &info)
	assert.Equal(t, 1, info.Snapshots)
	assert.Equal(t, 2, info.Tickers)

	rec = f.do(http.MethodGet, "/api/data/tickers?date=2020-01-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tickers struct {
		Rows []usecase.TickerInfo `json:"rows"`
	}
	decode(t, rec, &tickers)
	require.Len(t, tickers.Rows, 2)
	assert.Equal(t, "AAA", tickers.Rows[0].Ticker)
	assert.True(t, tickers.Rows[0].HasMetadata)
	assert.Equal(t, models.UnknownIndustry, tickers.Rows[1].Industry)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/data/tickers?date=soon", "").Code)

	rec = f.do(http.MethodGet, "/api/data/metadata/aaa", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ti usecase.TickerInfo
	decode(t, rec, &ti)
	assert.Equal(t, "technology", ti.Industry)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/data/metadata/ZZZ", "").Code)

	rec = f.do(http.MethodGet, "/api/data/industries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var inds struct {
		Rows []string `json:"rows"`
	}
	decode(t, rec, &inds)
	assert.Equal(t, []string{"technology"}, inds.Rows)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", "").Code)

	h := NewHealthHandler().Register("db", func(context.Context) error { return errors.New("down") })
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{usecase.ErrRunNotReady, http.StatusConflict},
		{&models.ConfigError{Reason: "no price data"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, toAppError(tc.err).Status, tc.err.Error())
	}
}
