package market

import (
	"sort"
	"time"

	"LoserLab/internal/domain/models"
	"LoserLab/pkg/util"
)

// Series is one ticker's daily bars, ascending by date with unique dates.
type Series struct {
	Ticker string
	bars   []models.PriceBar
}

// NewSeries normalises bar dates to calendar days, sorts them and keeps the
// last bar for a repeated date.
func NewSeries(ticker string, bars []models.PriceBar) *Series {
	out := make([]models.PriceBar, len(bars))
	copy(out, bars)
	for i := range out {
		out[i].Date = util.Day(out[i].Date)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return &Series{Ticker: ticker, bars: dedup}
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bars)
}

// Bars returns the underlying bars. Callers must not modify them.
func (s *Series) Bars() []models.PriceBar {
	if s == nil {
		return nil
	}
	return s.bars
}

// Last returns the most recent bar.
func (s *Series) Last() (models.PriceBar, bool) {
	if s.Len() == 0 {
		return models.PriceBar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// On returns the bar dated exactly day.
func (s *Series) On(day time.Time) (models.PriceBar, bool) {
	i := s.searchFrom(day)
	if i < s.Len() && s.bars[i].Date.Equal(util.Day(day)) {
		return s.bars[i], true
	}
	return models.PriceBar{}, false
}

// After returns the first bar strictly after day.
func (s *Series) After(day time.Time) (models.PriceBar, bool) {
	d := util.Day(day)
	i := sort.Search(s.Len(), func(i int) bool { return s.bars[i].Date.After(d) })
	if i < s.Len() {
		return s.bars[i], true
	}
	return models.PriceBar{}, false
}

// OnOrAfter returns the first bar dated day or later.
func (s *Series) OnOrAfter(day time.Time) (models.PriceBar, bool) {
	i := s.searchFrom(day)
	if i < s.Len() {
		return s.bars[i], true
	}
	return models.PriceBar{}, false
}

// Nearest returns the bar whose date is closest to day; on equal distance the
// earlier bar wins.
func (s *Series) Nearest(day time.Time) (models.PriceBar, bool) {
	n := s.Len()
	if n == 0 {
		return models.PriceBar{}, false
	}
	d := util.Day(day)
	i := s.searchFrom(d)
	switch {
	case i == 0:
		return s.bars[0], true
	case i == n:
		return s.bars[n-1], true
	}
	before, after := s.bars[i-1], s.bars[i]
	if util.DaysBetween(before.Date, d) <= util.DaysBetween(d, after.Date) {
		return before, true
	}
	return after, true
}

// Between returns the dates of bars within [from, to].
func (s *Series) Between(from, to time.Time) []time.Time {
	lo := s.searchFrom(from)
	end := util.Day(to)
	var out []time.Time
	for i := lo; i < s.Len() && !s.bars[i].Date.After(end); i++ {
		out = append(out, s.bars[i].Date)
	}
	return out
}

func (s *Series) searchFrom(day time.Time) int {
	d := util.Day(day)
	return sort.Search(s.Len(), func(i int) bool { return !s.bars[i].Date.Before(d) })
}

// PriceData maps tickers to their loaded series.
type PriceData map[string]*Series

// TradingDays returns the sorted union of every series date within [from, to].
func (p PriceData) TradingDays(from, to time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range p {
		for _, d := range s.Between(from, to) {
			seen[d] = struct{}{}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
