package usecase

import (
	"context"
	"fmt"
	"time"

	"LoserLab/internal/domain/models"
	drepo "LoserLab/internal/domain/repository"
)

// Backends a ResultSink can route completed runs to.
const (
	BackendClickHouse = "clickhouse"
	BackendKafka      = "kafka"
	BackendMemory     = "memory"
)

// ResultSink routes completed runs to the configured backend.
type ResultSink struct {
	pub     drepo.Publisher
	store   drepo.RunStore
	metrics drepo.Metrics
	backend string
}

// NewResultSink creates a new ResultSink instance. pub and store may be nil
// when their backend is not selected.
func NewResultSink(pub drepo.Publisher, store drepo.RunStore, metrics drepo.Metrics, backend string) *ResultSink {
	return &ResultSink{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Deliver persists or publishes a completed run with its picks.
func (s *ResultSink) Deliver(ctx context.Context, run *models.RunResult) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}

	start := time.Now()
	var err error

	switch s.backend {
	case BackendKafka:
		if err = s.pub.PublishRun(ctx, run); err == nil {
			err = s.pub.PublishPicks(ctx, run.RunID, run.Picks)
		}
	case BackendClickHouse, BackendMemory:
		if err = s.store.SaveRun(ctx, run); err == nil {
			err = s.store.SavePicks(ctx, run.RunID, run.Picks)
		}
	default:
		err = fmt.Errorf("unknown backend: %s", s.backend)
	}

	if err != nil {
		s.record(func(m drepo.Metrics) { m.RecordError("deliver") })
		return fmt.Errorf("deliver run %s: %w", run.RunID, err)
	}

	s.record(func(m drepo.Metrics) {
		m.RecordPicks(s.backend, len(run.Picks))
		m.RecordLatency("deliver", time.Since(start).Seconds())
	})
	return nil
}

// Lookup reads a run back from the store.
func (s *ResultSink) Lookup(ctx context.Context, runID string) (*models.RunResult, error) {
	if s.store == nil {
		return nil, models.ErrNotFound
	}
	return s.store.GetRun(ctx, runID)
}

func (s *ResultSink) record(fn func(drepo.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

// Close closes underlying resources if available.
func (s *ResultSink) Close() {
	if s.pub != nil {
		_ = s.pub.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}
