package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	pkgch "LoserLab/pkg/clickhouse"
	applogger "LoserLab/pkg/logger"
	"LoserLab/pkg/util"
)

const barsTable = "daily_bars"

// CHPriceStore implements PriceStore backed by a ClickHouse daily bars table.
type CHPriceStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client) *CHPriceStore {
	return &CHPriceStore{ch: ch, db: ch.DB(), table: ch.Table(barsTable)}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the bars table when missing.
func (s *CHPriceStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ticker LowCardinality(String),
            date   Date,
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Int64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (ticker, date)
    `, s.table)})
}

func (s *CHPriceStore) GetSeries(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	start := time.Now()
	const qtpl = `
        SELECT ticker, date, open, high, low, close, volume
        FROM %s FINAL
        WHERE ticker = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, ticker, util.Day(from), util.Day(to))
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_series query error",
				applogger.String("table", s.table),
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 512)
	for rows.Next() {
		var (
			b                      models.PriceBar
			open, high, low, close sql.NullFloat64
		)
		if err := rows.Scan(&b.Ticker, &b.Date, &open, &high, &low, &close, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse get_series scan error",
					applogger.String("table", s.table),
					applogger.String("ticker", ticker),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = util.Day(b.Date)
		b.Open, b.High, b.Low, b.Close = nullable(open), nullable(high), nullable(low), nullable(close)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_series rows error",
				applogger.String("table", s.table),
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_series ok",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// StoreBars upserts bars; a later insert for the same ticker and date replaces the earlier one.
func (s *CHPriceStore) StoreBars(ctx context.Context, bars []models.PriceBar) error {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		if b.Ticker == "" || b.Date.IsZero() {
			continue
		}
		rows = append(rows, []any{b.Ticker, util.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	err := s.ch.InsertRows(ctx, s.table,
		[]string{"ticker", "date", "open", "high", "low", "close", "volume"}, rows, pkgch.DefaultChunkSize)
	if err != nil && s.l != nil {
		s.l.Error("clickhouse store_bars error", applogger.Int("rows", len(rows)), applogger.Error(err))
	}
	return err
}

func nullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

var (
	_ domrepo.PriceStore  = (*CHPriceStore)(nil)
	_ domrepo.PriceWriter = (*CHPriceStore)(nil)
)
