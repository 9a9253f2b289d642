package market

import (
	"sort"
	"time"

	"LoserLab/internal/domain/models"
	"LoserLab/pkg/util"
)

// DailyChangePct is the open-to-close move of a bar in percent.
func DailyChangePct(b models.PriceBar) (float64, bool) {
	if !models.UsablePrice(b.Open) || !models.UsablePrice(b.Close) {
		return 0, false
	}
	return (b.Close - b.Open) / b.Open * 100, true
}

// FindLosers ranks the eligible tickers trading on date by open-to-close change
// and returns at most topK of them, worst first, ranked from 1. Equal changes
// keep the order of eligible.
func FindLosers(data PriceData, date time.Time, eligible []string, topK int) []models.LoserRecord {
	if topK <= 0 {
		return nil
	}
	day := util.Day(date)

	type change struct {
		ticker string
		pct    float64
	}
	changes := make([]change, 0, len(eligible))
	for _, ticker := range eligible {
		s, ok := data[ticker]
		if !ok {
			continue
		}
		bar, ok := s.On(day)
		if !ok {
			continue
		}
		pct, ok := DailyChangePct(bar)
		if !ok {
			continue
		}
		changes = append(changes, change{ticker: ticker, pct: pct})
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].pct < changes[j].pct })
	if len(changes) > topK {
		changes = changes[:topK]
	}

	out := make([]models.LoserRecord, len(changes))
	for i, c := range changes {
		out[i] = models.LoserRecord{
			Ticker:       c.ticker,
			Date:         day,
			DailyLossPct: c.pct,
			Rank:         i + 1,
		}
	}
	return out
}
