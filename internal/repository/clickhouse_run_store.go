package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	pkgch "LoserLab/pkg/clickhouse"
	applogger "LoserLab/pkg/logger"
)

const (
	runsTable   = "backtest_runs"
	picksTable  = "backtest_picks"
	modelsTable = "scoring_models"
)

var pickColumns = []string{
	"run_id", "loser_date", "ticker", "daily_loss_pct", "rank", "industry",
	"dividend_yield", "volume", "purchase_date", "purchase_price", "confidence_score", "returns",
}

// CHRunStore persists runs, picks and scoring models in ClickHouse.
// Nested values (request, summaries, formulas, returns) are stored as JSON strings.
type CHRunStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHRunStore(ch *pkgch.Client) *CHRunStore {
	return &CHRunStore{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHRunStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHRunStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id             String,
            request            String,
            total_trading_days UInt32,
            summaries          String,
            formulas           String,
            started_at         DateTime64(3),
            completed_at       DateTime64(3)
        ) ENGINE = ReplacingMergeTree(completed_at)
        ORDER BY run_id`, s.ch.Table(runsTable)),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id           String,
            loser_date       Date,
            ticker           LowCardinality(String),
            daily_loss_pct   Float64,
            rank             UInt16,
            industry         String,
            dividend_yield   Float64,
            volume           Int64,
            purchase_date    Nullable(Date),
            purchase_price   Nullable(Float64),
            confidence_score Float64,
            returns          String
        ) ENGINE = MergeTree
        ORDER BY (run_id, loser_date, rank)`, s.ch.Table(picksTable)),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id              String,
            name            String,
            training_run_id String,
            formula         String,
            threshold       Float64,
            avg_return      Nullable(Float64),
            win_rate        Nullable(Float64),
            created_at      DateTime64(3)
        ) ENGINE = ReplacingMergeTree(created_at)
        ORDER BY id`, s.ch.Table(modelsTable)),
	})
}

func (s *CHRunStore) SaveRun(ctx context.Context, run *models.RunResult) error {
	req, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	sums, err := json.Marshal(run.Summaries)
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}
	forms, err := json.Marshal(run.Formulas)
	if err != nil {
		return fmt.Errorf("marshal formulas: %w", err)
	}
	err = s.ch.InsertRows(ctx, s.ch.Table(runsTable),
		[]string{"run_id", "request", "total_trading_days", "summaries", "formulas", "started_at", "completed_at"},
		[][]any{{run.RunID, string(req), uint32(run.TotalTradingDays), string(sums), string(forms), run.StartedAt, run.CompletedAt}},
		1)
	if err != nil {
		s.logErr("save_run", run.RunID, err)
	}
	return err
}

func (s *CHRunStore) SavePicks(ctx context.Context, runID string, picks []models.Pick) error {
	rows := make([][]any, 0, len(picks))
	for _, p := range picks {
		rets, err := json.Marshal(p.Returns)
		if err != nil {
			return fmt.Errorf("marshal returns: %w", err)
		}
		rows = append(rows, []any{
			runID, p.LoserDate, p.Ticker, p.DailyLossPct, uint16(p.Rank), p.Industry,
			p.DividendYield, p.Volume, p.PurchaseDate, p.PurchasePrice, p.ConfidenceScore, string(rets),
		})
	}
	err := s.ch.InsertRows(ctx, s.ch.Table(picksTable), pickColumns, rows, pkgch.DefaultChunkSize)
	if err != nil {
		s.logErr("save_picks", runID, err)
	}
	return err
}

func (s *CHRunStore) GetRun(ctx context.Context, runID string) (*models.RunResult, error) {
	q := fmt.Sprintf(`
        SELECT run_id, request, total_trading_days, summaries, formulas, started_at, completed_at
        FROM %s FINAL WHERE run_id = ?`, s.ch.Table(runsTable))
	var (
		run              models.RunResult
		req, sums, forms string
		days             uint32
	)
	err := s.db.QueryRowContext(ctx, q, runID).Scan(&run.RunID, &req, &days, &sums, &forms, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		s.logErr("get_run", runID, err)
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.TotalTradingDays = int(days)
	if err := unmarshalAll(
		[]string{req, sums, forms},
		[]any{&run.Request, &run.Summaries, &run.Formulas},
	); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}

	picks, err := s.getPicks(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Picks = picks
	return &run, nil
}

func (s *CHRunStore) getPicks(ctx context.Context, runID string) ([]models.Pick, error) {
	q := fmt.Sprintf(`
        SELECT loser_date, ticker, daily_loss_pct, rank, industry, dividend_yield, volume,
               purchase_date, purchase_price, confidence_score, returns
        FROM %s WHERE run_id = ?
        ORDER BY loser_date ASC, rank ASC`, s.ch.Table(picksTable))
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		s.logErr("get_picks", runID, err)
		return nil, fmt.Errorf("get picks: %w", err)
	}
	defer rows.Close()

	var out []models.Pick
	for rows.Next() {
		var (
			p      models.Pick
			rank   uint16
			pdate  sql.NullTime
			pprice sql.NullFloat64
			rets   string
		)
		if err := rows.Scan(&p.LoserDate, &p.Ticker, &p.DailyLossPct, &rank, &p.Industry, &p.DividendYield,
			&p.Volume, &pdate, &pprice, &p.ConfidenceScore, &rets); err != nil {
			return nil, fmt.Errorf("scan pick: %w", err)
		}
		p.Rank = int(rank)
		if pdate.Valid {
			d := pdate.Time
			p.PurchaseDate = &d
		}
		if pprice.Valid {
			p.PurchasePrice = models.Float(pprice.Float64)
		}
		if err := json.Unmarshal([]byte(rets), &p.Returns); err != nil {
			return nil, fmt.Errorf("decode returns: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHRunStore) SaveModel(ctx context.Context, m *models.ScoringModel) error {
	formula, err := json.Marshal(m.Formula)
	if err != nil {
		return fmt.Errorf("marshal formula: %w", err)
	}
	return s.ch.InsertRows(ctx, s.ch.Table(modelsTable),
		[]string{"id", "name", "training_run_id", "formula", "threshold", "avg_return", "win_rate", "created_at"},
		[][]any{{m.ID, m.Name, m.TrainingRunID, string(formula), m.Threshold, m.AvgReturn, m.WinRate, m.CreatedAt}},
		1)
}

func (s *CHRunStore) ListModels(ctx context.Context) ([]models.ScoringModel, error) {
	return s.queryModels(ctx, "", nil)
}

func (s *CHRunStore) GetModel(ctx context.Context, id string) (*models.ScoringModel, error) {
	out, err := s.queryModels(ctx, "WHERE id = ?", []any{id})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, models.ErrNotFound
	}
	return &out[0], nil
}

func (s *CHRunStore) DeleteModel(ctx context.Context, id string) error {
	if _, err := s.GetModel(ctx, id); err != nil {
		return err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.ch.Table(modelsTable))
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	return nil
}

func (s *CHRunStore) queryModels(ctx context.Context, where string, args []any) ([]models.ScoringModel, error) {
	q := fmt.Sprintf(`
        SELECT id, name, training_run_id, formula, threshold, avg_return, win_rate, created_at
        FROM %s FINAL %s
        ORDER BY created_at DESC`, s.ch.Table(modelsTable), where)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var out []models.ScoringModel
	for rows.Next() {
		var (
			m       models.ScoringModel
			formula string
			avg, wr sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.TrainingRunID, &formula, &m.Threshold, &avg, &wr, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		if err := json.Unmarshal([]byte(formula), &m.Formula); err != nil {
			return nil, fmt.Errorf("decode formula: %w", err)
		}
		if avg.Valid {
			m.AvgReturn = models.Float(avg.Float64)
		}
		if wr.Valid {
			m.WinRate = models.Float(wr.Float64)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *CHRunStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *CHRunStore) Close() error { return nil }

func (s *CHRunStore) logErr(op, runID string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse "+op+" error",
			applogger.String("run_id", runID),
			applogger.Error(err),
		)
	}
}

func unmarshalAll(raw []string, dest []any) error {
	for i := range raw {
		if raw[i] == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw[i]), dest[i]); err != nil {
			return err
		}
	}
	return nil
}

var _ domrepo.RunStore = (*CHRunStore)(nil)
