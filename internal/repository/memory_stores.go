package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	"LoserLab/pkg/util"
)

// MemoryPriceStore keeps daily bars in process memory.
type MemoryPriceStore struct {
	mu   sync.RWMutex
	bars map[string]map[time.Time]models.PriceBar
}

func NewMemoryPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{bars: make(map[string]map[time.Time]models.PriceBar)}
}

func (s *MemoryPriceStore) GetSeries(_ context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	from, to = util.Day(from), util.Day(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PriceBar, 0, len(s.bars[ticker]))
	for d, b := range s.bars[ticker] {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// StoreBars inserts bars, replacing any bar already held for the same ticker and date.
func (s *MemoryPriceStore) StoreBars(_ context.Context, bars []models.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		if b.Ticker == "" {
			continue
		}
		b.Date = util.Day(b.Date)
		m, ok := s.bars[b.Ticker]
		if !ok {
			m = make(map[time.Time]models.PriceBar)
			s.bars[b.Ticker] = m
		}
		m[b.Date] = b
	}
	return nil
}

// Tickers lists tickers with at least one bar.
func (s *MemoryPriceStore) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.bars))
	for t := range s.bars {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MemoryRunStore keeps runs and scoring models in process memory.
type MemoryRunStore struct {
	mu     sync.RWMutex
	runs   map[string]models.RunResult
	models map[string]models.ScoringModel
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:   make(map[string]models.RunResult),
		models: make(map[string]models.ScoringModel),
	}
}

func (s *MemoryRunStore) Init(context.Context) error { return nil }

func (s *MemoryRunStore) SaveRun(_ context.Context, run *models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	if prev, ok := s.runs[run.RunID]; ok && len(cp.Picks) == 0 {
		cp.Picks = prev.Picks
	}
	s.runs[run.RunID] = cp
	return nil
}

func (s *MemoryRunStore) SavePicks(_ context.Context, runID string, picks []models.Pick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.runs[runID]
	run.RunID = runID
	run.Picks = append([]models.Pick(nil), picks...)
	s.runs[runID] = run
	return nil
}

func (s *MemoryRunStore) GetRun(_ context.Context, runID string) (*models.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &run, nil
}

func (s *MemoryRunStore) SaveModel(_ context.Context, m *models.ScoringModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[m.ID] = *m
	return nil
}

// ListModels returns models newest first.
func (s *MemoryRunStore) ListModels(context.Context) ([]models.ScoringModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScoringModel, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryRunStore) GetModel(_ context.Context, id string) (*models.ScoringModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &m, nil
}

func (s *MemoryRunStore) DeleteModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.models, id)
	return nil
}

func (s *MemoryRunStore) Health(context.Context) error { return nil }

func (s *MemoryRunStore) Close() error { return nil }

var (
	_ domrepo.PriceStore  = (*MemoryPriceStore)(nil)
	_ domrepo.PriceWriter = (*MemoryPriceStore)(nil)
	_ domrepo.RunStore    = (*MemoryRunStore)(nil)
)
