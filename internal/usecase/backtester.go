package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	domsvc "LoserLab/internal/domain/service"
	"LoserLab/internal/services/market"
	"LoserLab/internal/services/scoring"
	applogger "LoserLab/pkg/logger"
	"LoserLab/pkg/util"
)

const (
	defaultTopK        = 5
	defaultWorkers     = 4
	defaultLoadWorkers = 8

	// bars loaded before the start date so the first day can be located
	leadDays = 7
	// extra days after the longest holding period
	tailDays = 30
)

// DefaultHoldYears are used when a request names no holding period.
var DefaultHoldYears = []int{2, 5}

// Backtester scans a date range for the biggest daily losers, simulates
// buying each one the next morning and holding it for every requested period,
// then summarises the outcome and learns a scoring formula per period.
type Backtester struct {
	prices    domrepo.PriceStore
	universe  domrepo.UniverseSource
	meta      domrepo.MetadataSource
	scorer    domsvc.Scorer
	suggester domsvc.WeightSuggester
	metrics   domrepo.Metrics
	l         *applogger.Logger

	benchmark   string
	workers     int
	loadWorkers int
}

type BacktestOption func(*Backtester)

// WithBenchmark sets the comparison index ticker.
func WithBenchmark(ticker string) BacktestOption {
	return func(b *Backtester) {
		if ticker != "" {
			b.benchmark = ticker
		}
	}
}

// WithWorkers sets how many trading days are processed in parallel.
func WithWorkers(n int) BacktestOption {
	return func(b *Backtester) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLoadWorkers sets how many series are loaded in parallel.
func WithLoadWorkers(n int) BacktestOption {
	return func(b *Backtester) {
		if n > 0 {
			b.loadWorkers = n
		}
	}
}

func WithScorer(s domsvc.Scorer) BacktestOption {
	return func(b *Backtester) {
		if s != nil {
			b.scorer = s
		}
	}
}

func WithSuggester(s domsvc.WeightSuggester) BacktestOption {
	return func(b *Backtester) {
		if s != nil {
			b.suggester = s
		}
	}
}

func WithMetrics(m domrepo.Metrics) BacktestOption {
	return func(b *Backtester) { b.metrics = m }
}

func WithLogger(l *applogger.Logger) BacktestOption {
	return func(b *Backtester) {
		if l != nil {
			b.l = l
		}
	}
}

func NewBacktester(prices domrepo.PriceStore, universe domrepo.UniverseSource, meta domrepo.MetadataSource, opts ...BacktestOption) *Backtester {
	b := &Backtester{
		prices:      prices,
		universe:    universe,
		meta:        meta,
		scorer:      scoring.NewRuleScorer(),
		suggester:   scoring.QuartileSuggester{},
		l:           applogger.Nop(),
		benchmark:   "SPY",
		workers:     defaultWorkers,
		loadWorkers: defaultLoadWorkers,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Normalize fills request defaults and validates it.
func Normalize(req models.RunRequest) (models.RunRequest, error) {
	req.StartDate = util.Day(req.StartDate)
	req.EndDate = util.Day(req.EndDate)
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return req, fmt.Errorf("start and end dates required")
	}
	if req.StartDate.After(req.EndDate) {
		return req, fmt.Errorf("start date must be <= end date")
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}
	if len(req.HoldYears) == 0 {
		req.HoldYears = append([]int(nil), DefaultHoldYears...)
	}
	for _, y := range req.HoldYears {
		if y <= 0 {
			return req, fmt.Errorf("hold years must be positive, got %d", y)
		}
	}
	return req, nil
}

// Run executes a backtest under a fresh run ID.
func (b *Backtester) Run(ctx context.Context, req models.RunRequest, progress ProgressFunc) (*models.RunResult, error) {
	return b.RunWithID(ctx, uuid.NewString(), req, progress)
}

// RunWithID executes a backtest. Missing data for single tickers or dates
// only shrinks the result; a missing universe or no usable data at all fails
// with a *models.ConfigError.
func (b *Backtester) RunWithID(ctx context.Context, runID string, req models.RunRequest, progress ProgressFunc) (*models.RunResult, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	rep := NewProgressReporter(progress)
	log := b.l.With(applogger.String("run_id", runID))

	snaps, err := b.universe.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	resolver := market.NewResolver(snaps)
	if resolver.Len() == 0 {
		return nil, b.fail(&models.ConfigError{Reason: "no universe snapshots loaded"})
	}
	tickers := resolver.TickersBetween(req.StartDate, req.EndDate)
	if len(tickers) == 0 {
		return nil, b.fail(&models.ConfigError{Reason: "no eligible tickers in date range"})
	}
	log.Info("backtest started",
		applogger.Date("start", req.StartDate),
		applogger.Date("end", req.EndDate),
		applogger.Int("tickers", len(tickers)),
		applogger.Any("hold_years", req.HoldYears),
	)

	from := req.StartDate.AddDate(0, 0, -leadDays)
	to := req.EndDate.AddDate(0, 0, 365*req.MaxHold()+tailDays)

	rep.Report(0, "Fetching stock data...")
	data, err := b.loadSeries(ctx, tickers, from, to, func(done, total int) {
		rep.Report(float64(done)/float64(total)*40, "Fetching stock data...")
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, b.fail(&models.ConfigError{Reason: "no price data for any eligible ticker"})
	}

	rep.Report(40, "Fetching benchmark data...")
	bench := b.loadBenchmark(ctx, from, to)

	var days []time.Time
	if bench.Len() > 0 {
		days = bench.Between(req.StartDate, req.EndDate)
	} else {
		days = data.TradingDays(req.StartDate, req.EndDate)
	}
	rep.Report(45, fmt.Sprintf("Analyzing %d trading days...", len(days)))

	picks := b.processDays(days, resolver, data, bench, req, func(done int) {
		rep.Report(45+float64(done)/float64(len(days))*45, fmt.Sprintf("Processing day %d/%d", done, len(days)))
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Report(90, "Analyzing patterns...")
	result := &models.RunResult{
		RunID:            runID,
		Request:          req,
		TotalTradingDays: len(days),
		Picks:            picks,
		StartedAt:        started,
	}
	for _, y := range req.HoldYears {
		result.Summaries = append(result.Summaries, scoring.Summarize(picks, y))
		result.Formulas = append(result.Formulas, b.suggester.Suggest(picks, y))
	}
	result.CompletedAt = time.Now()
	rep.Report(100, "Complete")

	log.Info("backtest completed",
		applogger.Int("trading_days", len(days)),
		applogger.Int("picks", len(picks)),
		applogger.Duration("took", result.CompletedAt.Sub(started)),
	)
	if b.metrics != nil {
		b.metrics.RecordPicks(models.RunTypeTraining, len(picks))
		b.metrics.RecordLatency("backtest", result.CompletedAt.Sub(started).Seconds())
	}
	return result, nil
}

func (b *Backtester) fail(err error) error {
	var cfgErr *models.ConfigError
	if b.metrics != nil && errors.As(err, &cfgErr) {
		b.metrics.RecordError("configuration")
	}
	b.l.Error("backtest rejected", applogger.Error(err))
	return err
}

// loadSeries fetches every ticker with a bounded worker pool. A ticker that
// fails to load or has no bars is skipped.
func (b *Backtester) loadSeries(ctx context.Context, tickers []string, from, to time.Time, onDone func(done, total int)) (market.PriceData, error) {
	jobs := make(chan string)
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		done int64
		data = make(market.PriceData, len(tickers))
	)

	workers := b.loadWorkers
	if workers > len(tickers) {
		workers = len(tickers)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				bars, err := b.prices.GetSeries(ctx, ticker, from, to)
				n := atomic.AddInt64(&done, 1)
				onDone(int(n), len(tickers))
				if err != nil {
					if ctx.Err() == nil {
						b.l.Warn("series load failed", applogger.String("ticker", ticker), applogger.Error(err))
						if b.metrics != nil {
							b.metrics.RecordError("series_load")
						}
					}
					continue
				}
				if len(bars) == 0 {
					continue
				}
				s := market.NewSeries(ticker, bars)
				mu.Lock()
				data[ticker] = s
				mu.Unlock()
			}
		}()
	}

loop:
	for _, t := range tickers {
		select {
		case <-ctx.Done():
			break loop
		case jobs <- t:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	return data, nil
}

func (b *Backtester) loadBenchmark(ctx context.Context, from, to time.Time) *market.Series {
	bars, err := b.prices.GetSeries(ctx, b.benchmark, from, to)
	if err != nil {
		b.l.Warn("benchmark load failed, using stock calendar",
			applogger.String("benchmark", b.benchmark), applogger.Error(err))
		bars = nil
	}
	return market.NewSeries(b.benchmark, bars)
}

// processDays builds the picks of every day in parallel. Each worker writes
// into its day's slot so the final order is by date, then rank.
func (b *Backtester) processDays(days []time.Time, resolver *market.Resolver, data market.PriceData, bench *market.Series, req models.RunRequest, onDone func(done int)) []models.Pick {
	perDay := make([][]models.Pick, len(days))
	idx := make(chan int)
	var (
		wg   sync.WaitGroup
		done int64
	)

	workers := b.workers
	if workers > len(days) {
		workers = len(days)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				perDay[i] = b.picksFor(days[i], resolver, data, bench, req)
				onDone(int(atomic.AddInt64(&done, 1)))
			}
		}()
	}
	for i := range days {
		idx <- i
	}
	close(idx)
	wg.Wait()

	var picks []models.Pick
	for _, ps := range perDay {
		picks = append(picks, ps...)
	}
	return picks
}

func (b *Backtester) picksFor(date time.Time, resolver *market.Resolver, data market.PriceData, bench *market.Series, req models.RunRequest) []models.Pick {
	eligible := resolver.EligibleTickers(date)
	losers := market.FindLosers(data, date, eligible, req.TopK)

	picks := make([]models.Pick, 0, len(losers))
	for _, rec := range losers {
		attrs := b.meta.Attributes(rec.Ticker)
		series := data[rec.Ticker]

		p := models.Pick{
			LoserDate:     rec.Date,
			Ticker:        rec.Ticker,
			DailyLossPct:  rec.DailyLossPct,
			Rank:          rec.Rank,
			Industry:      attrs.Industry,
			DividendYield: attrs.DividendYield,
			Volume:        attrs.Volume,
		}
		if entry, ok := market.EntryFor(series, rec.Date); ok {
			purchaseDate, purchasePrice := entry.Date, entry.Open
			p.PurchaseDate = &purchaseDate
			p.PurchasePrice = &purchasePrice
		}
		for _, y := range req.HoldYears {
			hr := models.HoldingReturn{Years: y}
			if tr, ok := market.ComputeReturn(series, rec.Date, y); ok {
				hr.Return = models.Float(tr.ReturnPct)
			}
			if tr, ok := market.ComputeBenchmarkReturn(bench, rec.Date, y); ok {
				hr.BenchmarkReturn = models.Float(tr.ReturnPct)
			}
			p.Returns = append(p.Returns, hr)
		}
		p.ConfidenceScore = b.scorer.Score(attrs, rec.DailyLossPct, rec.Rank)
		picks = append(picks, p)
	}
	return picks
}
