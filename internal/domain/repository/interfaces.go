package repository

import (
	"context"
	"time"

	"LoserLab/internal/domain/models"
)

// PriceStore loads daily bars for one ticker, ascending by date, within [from, to].
// An unknown ticker yields an empty series, not an error.
type PriceStore interface {
	GetSeries(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)
}

// PriceWriter persists daily bars. Implemented by stores that can be seeded.
type PriceWriter interface {
	StoreBars(ctx context.Context, bars []models.PriceBar) error
}

// UniverseSource provides the dated index membership snapshots.
type UniverseSource interface {
	Snapshots(ctx context.Context) ([]models.UniverseSnapshot, error)
}

// MetadataSource provides scoring attributes; unknown tickers get models.DefaultAttributes.
type MetadataSource interface {
	Attributes(ticker string) models.Attributes
}

// MetadataCatalog is a MetadataSource that can also be browsed.
type MetadataCatalog interface {
	MetadataSource
	Lookup(ticker string) (models.Attributes, bool)
	Industries() []string
	Len() int
}

// RunStore persists backtest results and saved scoring models.
type RunStore interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run *models.RunResult) error
	SavePicks(ctx context.Context, runID string, picks []models.Pick) error
	GetRun(ctx context.Context, runID string) (*models.RunResult, error)
	SaveModel(ctx context.Context, m *models.ScoringModel) error
	ListModels(ctx context.Context) ([]models.ScoringModel, error)
	GetModel(ctx context.Context, id string) (*models.ScoringModel, error)
	DeleteModel(ctx context.Context, id string) error
	Health(ctx context.Context) error
	Close() error
}

// Publisher streams completed runs to downstream consumers.
type Publisher interface {
	PublishRun(ctx context.Context, run *models.RunResult) error
	PublishPicks(ctx context.Context, runID string, picks []models.Pick) error
	Close() error
}

type Metrics interface {
	RecordRun(kind, status string)
	RecordPicks(kind string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordProgress(runID string, pct float64)
}
