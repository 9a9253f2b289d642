package usecase

import (
	"context"
	"fmt"
	"time"

	"LoserLab/internal/domain/models"
	domrepo "LoserLab/internal/domain/repository"
	"LoserLab/internal/services/market"
)

// UniverseInfo describes the loaded constituent history.
type UniverseInfo struct {
	Snapshots int       `json:"snapshots"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
	Tickers   int       `json:"total_tickers"`
}

// TickerInfo is a ticker with its scoring attributes.
type TickerInfo struct {
	Ticker string `json:"ticker"`
	models.Attributes
	HasMetadata bool `json:"has_metadata"`
}

// DataUseCase exposes the universe and metadata the backtester runs against.
type DataUseCase struct {
	universe domrepo.UniverseSource
	meta     domrepo.MetadataCatalog
}

func NewDataUseCase(universe domrepo.UniverseSource, meta domrepo.MetadataCatalog) *DataUseCase {
	return &DataUseCase{universe: universe, meta: meta}
}

func (uc *DataUseCase) resolver(ctx context.Context) (*market.Resolver, error) {
	snaps, err := uc.universe.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	r := market.NewResolver(snaps)
	if r.Len() == 0 {
		return nil, &models.ConfigError{Reason: "no universe snapshots loaded"}
	}
	return r, nil
}

// Universe summarises the constituent history.
func (uc *DataUseCase) Universe(ctx context.Context) (UniverseInfo, error) {
	r, err := uc.resolver(ctx)
	if err != nil {
		return UniverseInfo{}, err
	}
	first, last, _ := r.Range()
	return UniverseInfo{
		Snapshots: r.Len(),
		FirstDate: first,
		LastDate:  last,
		Tickers:   len(r.TickersBetween(first, last)),
	}, nil
}

// TickersOn returns the members eligible on date with their attributes.
func (uc *DataUseCase) TickersOn(ctx context.Context, date time.Time) ([]TickerInfo, error) {
	r, err := uc.resolver(ctx)
	if err != nil {
		return nil, err
	}
	tickers := r.EligibleTickers(date)
	out := make([]TickerInfo, len(tickers))
	for i, t := range tickers {
		a, ok := uc.meta.Lookup(t)
		if !ok {
			a = models.DefaultAttributes()
		}
		out[i] = TickerInfo{Ticker: t, Attributes: a, HasMetadata: ok}
	}
	return out, nil
}

// Metadata returns one ticker's attributes.
func (uc *DataUseCase) Metadata(ticker string) (TickerInfo, error) {
	a, ok := uc.meta.Lookup(ticker)
	if !ok {
		return TickerInfo{}, fmt.Errorf("ticker %s: %w", ticker, models.ErrNotFound)
	}
	return TickerInfo{Ticker: ticker, Attributes: a, HasMetadata: true}, nil
}

// Industries lists the distinct industries in the metadata.
func (uc *DataUseCase) Industries() []string {
	return uc.meta.Industries()
}
