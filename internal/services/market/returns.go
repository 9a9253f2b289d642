package market

import (
	"time"

	"LoserLab/internal/domain/models"
	"LoserLab/pkg/util"
)

// EntryFor returns the first bar strictly after loserDate when its open can be
// traded. This is the simulated purchase.
func EntryFor(s *Series, loserDate time.Time) (models.PriceBar, bool) {
	if s == nil {
		return models.PriceBar{}, false
	}
	bar, ok := s.After(loserDate)
	if !ok || !models.UsablePrice(bar.Open) {
		return models.PriceBar{}, false
	}
	return bar, true
}

// ComputeReturn buys at the open of the next trading day after loserDate and
// sells at the close of the bar nearest to purchase + holdYears*365 days.
// The result is absent when the series ends before the target date.
func ComputeReturn(s *Series, loserDate time.Time, holdYears int) (models.TradeResult, bool) {
	return compute(s, loserDate, holdYears, func(target time.Time) (models.PriceBar, bool) {
		last, ok := s.Last()
		if !ok || target.After(last.Date) {
			return models.PriceBar{}, false
		}
		return s.Nearest(target)
	})
}

// ComputeBenchmarkReturn follows ComputeReturn but exits on the first bar on or
// after the target date instead of the nearest one.
func ComputeBenchmarkReturn(s *Series, loserDate time.Time, holdYears int) (models.TradeResult, bool) {
	return compute(s, loserDate, holdYears, s.OnOrAfter)
}

func compute(s *Series, loserDate time.Time, holdYears int, exitFor func(time.Time) (models.PriceBar, bool)) (models.TradeResult, bool) {
	entry, ok := EntryFor(s, loserDate)
	if !ok {
		return models.TradeResult{}, false
	}
	exit, ok := exitFor(util.AddYears(entry.Date, holdYears))
	if !ok || !models.UsablePrice(exit.Close) {
		return models.TradeResult{}, false
	}
	return models.TradeResult{
		ReturnPct:     (exit.Close - entry.Open) / entry.Open * 100,
		PurchaseDate:  entry.Date,
		PurchasePrice: entry.Open,
		ExitDate:      exit.Date,
		ExitPrice:     exit.Close,
	}, true
}
