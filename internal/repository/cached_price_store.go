package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	"LoserLab/pkg/cache"
	applogger "LoserLab/pkg/logger"
	"LoserLab/pkg/util"
)

// CachedPriceStore serves series from a cache and falls back to the wrapped store.
// Cache failures never fail a read.
type CachedPriceStore struct {
	next domrepo.PriceStore
	c    cache.Service
	ttl  time.Duration
	l    *applogger.Logger
}

func NewCachedPriceStore(next domrepo.PriceStore, c cache.Service, ttl time.Duration) *CachedPriceStore {
	return &CachedPriceStore{next: next, c: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (s *CachedPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

// cachedBar is the cache encoding of a PriceBar; JSON has no NaN so missing prices are null.
type cachedBar struct {
	Date   string   `json:"d"`
	Open   *float64 `json:"o"`
	High   *float64 `json:"h"`
	Low    *float64 `json:"l"`
	Close  *float64 `json:"c"`
	Volume int64    `json:"v"`
}

func seriesKey(ticker string, from, to time.Time) string {
	return cache.GenerateKey("series", ticker, util.FormatDate(from), util.FormatDate(to))
}

func (s *CachedPriceStore) GetSeries(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	key := seriesKey(ticker, from, to)
	hit, err := cache.Fetch(ctx, s.c, key, s.ttl, func(ctx context.Context) ([]cachedBar, error) {
		bars, err := s.next.GetSeries(ctx, ticker, from, to)
		if err != nil {
			return nil, err
		}
		return encodeBars(bars), nil
	}, s.logCacheError(key))
	if err != nil {
		return nil, err
	}
	return decodeBars(ticker, hit), nil
}

func (s *CachedPriceStore) logCacheError(key string) func(op string, err error) {
	if s.l == nil {
		return nil
	}
	return func(op string, err error) {
		s.l.Warn("series cache "+op+" failed", applogger.String("key", key), applogger.Error(err))
	}
}

// StoreBars writes through to the wrapped store and drops cached series for the touched tickers.
func (s *CachedPriceStore) StoreBars(ctx context.Context, bars []models.PriceBar) error {
	w, ok := s.next.(domrepo.PriceWriter)
	if !ok {
		return errors.New("underlying price store is read-only")
	}
	if err := w.StoreBars(ctx, bars); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for _, b := range bars {
		if _, ok := seen[b.Ticker]; ok {
			continue
		}
		seen[b.Ticker] = struct{}{}
		_ = s.c.DeleteByPattern(ctx, cache.BuildPattern(cache.GenerateKey("series", b.Ticker)+":"))
	}
	return nil
}

func encodeBars(bars []models.PriceBar) []cachedBar {
	out := make([]cachedBar, len(bars))
	for i, b := range bars {
		out[i] = cachedBar{
			Date:   util.FormatDate(b.Date),
			Open:   finite(b.Open),
			High:   finite(b.High),
			Low:    finite(b.Low),
			Close:  finite(b.Close),
			Volume: b.Volume,
		}
	}
	return out
}

func decodeBars(ticker string, in []cachedBar) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(in))
	for _, c := range in {
		d, ok := util.ParseDate(c.Date)
		if !ok {
			continue
		}
		out = append(out, models.PriceBar{
			Ticker: ticker,
			Date:   d,
			Open:   orNaN(c.Open),
			High:   orNaN(c.High),
			Low:    orNaN(c.Low),
			Close:  orNaN(c.Close),
			Volume: c.Volume,
		})
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

var (
	_ domrepo.PriceStore  = (*CachedPriceStore)(nil)
	_ domrepo.PriceWriter = (*CachedPriceStore)(nil)
)
