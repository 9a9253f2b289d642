package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LoserLab/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(ticker, date string, open, close float64) models.PriceBar {
	return models.PriceBar{Ticker: ticker, Date: day(date), Open: open, High: math.Max(open, close), Low: math.Min(open, close), Close: close}
}

func TestNewSeriesSortsAndDeduplicates(t *testing.T) {
	s := NewSeries("X", []models.PriceBar{
		bar("X", "2020-01-03", 3, 3),
		bar("X", "2020-01-01", 1, 1),
		{Ticker: "X", Date: day("2020-01-03").Add(15 * time.Hour), Open: 4, Close: 4},
	})
	require.Equal(t, 2, s.Len())
	assert.Equal(t, day("2020-01-01"), s.Bars()[0].Date)
	assert.Equal(t, 4.0, s.Bars()[1].Open, "last bar for a repeated date wins")
}

func TestSeriesNearestPrefersEarlierOnTie(t *testing.T) {
	s := NewSeries("X", []models.PriceBar{
		bar("X", "2020-01-01", 1, 1),
		bar("X", "2020-01-05", 5, 5),
	})
	b, ok := s.Nearest(day("2020-01-03"))
	require.True(t, ok)
	assert.Equal(t, day("2020-01-01"), b.Date)

	b, _ = s.Nearest(day("2020-01-04"))
	assert.Equal(t, day("2020-01-05"), b.Date)
}

func TestResolverEligibleTickers(t *testing.T) {
	r := NewResolver([]models.UniverseSnapshot{
		{EffectiveDate: day("2020-06-01"), Tickers: []string{"C", "B"}},
		{EffectiveDate: day("2020-01-01"), Tickers: []string{"A", "B", "A"}},
	})
	tests := []struct {
		name string
		date string
		want []string
	}{
		{"before first snapshot", "2019-01-01", []string{"A", "B"}},
		{"on first snapshot", "2020-01-01", []string{"A", "B"}},
		{"between snapshots", "2020-03-15", []string{"A", "B"}},
		{"on second snapshot", "2020-06-01", []string{"B", "C"}},
		{"after last snapshot", "2030-01-01", []string{"B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.EligibleTickers(day(tt.date)))
		})
	}
}

func TestResolverEmpty(t *testing.T) {
	r := NewResolver(nil)
	assert.Empty(t, r.EligibleTickers(day("2020-01-01")))
	assert.Empty(t, r.TickersBetween(day("2020-01-01"), day("2021-01-01")))
	_, _, ok := r.Range()
	assert.False(t, ok)
}

func TestResolverDuplicateDateKeepsLast(t *testing.T) {
	r := NewResolver([]models.UniverseSnapshot{
		{EffectiveDate: day("2020-01-01"), Tickers: []string{"A"}},
		{EffectiveDate: day("2020-01-01"), Tickers: []string{"Z"}},
	})
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"Z"}, r.EligibleTickers(day("2020-02-01")))
}

func TestResolverTickersBetween(t *testing.T) {
	r := NewResolver([]models.UniverseSnapshot{
		{EffectiveDate: day("2019-01-01"), Tickers: []string{"OLD"}},
		{EffectiveDate: day("2020-01-01"), Tickers: []string{"A"}},
		{EffectiveDate: day("2020-06-01"), Tickers: []string{"B"}},
		{EffectiveDate: day("2021-01-01"), Tickers: []string{"LATE"}},
	})
	assert.Equal(t, []string{"A", "B"}, r.TickersBetween(day("2020-02-01"), day("2020-12-31")))
	assert.Equal(t, []string{"OLD"}, r.TickersBetween(day("2018-01-01"), day("2018-06-01")))
}

func TestFindLosersScenarioA(t *testing.T) {
	data := PriceData{"X": NewSeries("X", []models.PriceBar{bar("X", "2020-03-02", 100, 90)})}
	got := FindLosers(data, day("2020-03-02"), []string{"X"}, 5)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "X", got[0].Ticker)
	assert.InDelta(t, -10.0, got[0].DailyLossPct, 1e-9)
}

func TestFindLosersRanksAndLimits(t *testing.T) {
	data := PriceData{}
	var eligible []string
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		data[name] = NewSeries(name, []models.PriceBar{bar(name, "2020-03-02", 100, 100-float64(i+1))})
		eligible = append(eligible, name)
	}
	data["NAN"] = NewSeries("NAN", []models.PriceBar{bar("NAN", "2020-03-02", math.NaN(), 10)})
	data["ZERO"] = NewSeries("ZERO", []models.PriceBar{bar("ZERO", "2020-03-02", 0, 10)})
	eligible = append(eligible, "NAN", "ZERO", "MISSING")

	for _, k := range []int{1, 3, 5, 20} {
		got := FindLosers(data, day("2020-03-02"), eligible, k)
		assert.LessOrEqual(t, len(got), k)
		for i, rec := range got {
			assert.Equal(t, i+1, rec.Rank)
			if i > 0 {
				assert.LessOrEqual(t, got[i-1].DailyLossPct, rec.DailyLossPct)
			}
		}
	}
	got := FindLosers(data, day("2020-03-02"), eligible, 3)
	assert.Equal(t, "G", got[0].Ticker)
	assert.Len(t, FindLosers(data, day("2020-03-02"), eligible, 20), 7)
}

func TestFindLosersStableOnTies(t *testing.T) {
	data := PriceData{
		"A": NewSeries("A", []models.PriceBar{bar("A", "2020-03-02", 100, 95)}),
		"B": NewSeries("B", []models.PriceBar{bar("B", "2020-03-02", 100, 95)}),
	}
	got := FindLosers(data, day("2020-03-02"), []string{"B", "A"}, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Ticker)
	assert.Equal(t, "A", got[1].Ticker)
}

func TestFindLosersNoData(t *testing.T) {
	assert.Empty(t, FindLosers(PriceData{}, day("2020-03-02"), []string{"A"}, 5))
}

// twoYearSeries has a loser day, an entry day and bars around the 2-year target.
func twoYearSeries() *Series {
	return NewSeries("X", []models.PriceBar{
		bar("X", "2020-03-02", 100, 90),
		bar("X", "2020-03-03", 85, 88),
		bar("X", "2022-03-01", 160, 165),
		bar("X", "2022-03-03", 168, 170),
		bar("X", "2022-03-07", 171, 175),
	})
}

func TestComputeReturnScenarioB(t *testing.T) {
	// target = 2020-03-03 + 730d = 2022-03-03
	res, ok := ComputeReturn(twoYearSeries(), day("2020-03-02"), 2)
	require.True(t, ok)
	assert.Equal(t, 85.0, res.PurchasePrice)
	assert.Equal(t, day("2020-03-03"), res.PurchaseDate)
	assert.Equal(t, day("2022-03-03"), res.ExitDate)
	assert.InDelta(t, 100.0, res.ReturnPct, 1e-9)
	assert.True(t, res.PurchaseDate.After(day("2020-03-02")))
}

func TestComputeReturnNearestExit(t *testing.T) {
	s := NewSeries("X", []models.PriceBar{
		bar("X", "2020-03-02", 100, 90),
		bar("X", "2020-03-03", 50, 50),
		bar("X", "2022-03-02", 60, 60),
		bar("X", "2022-03-05", 70, 75),
	})
	// target 2022-03-03: 2022-03-02 is one day away, 2022-03-05 two days
	res, ok := ComputeReturn(s, day("2020-03-02"), 2)
	require.True(t, ok)
	assert.Equal(t, day("2022-03-02"), res.ExitDate)
	assert.InDelta(t, 20.0, res.ReturnPct, 1e-9)
}

func TestComputeReturnOneDayShort(t *testing.T) {
	s := NewSeries("X", []models.PriceBar{
		bar("X", "2020-03-02", 100, 90),
		bar("X", "2020-03-03", 85, 88),
		bar("X", "2022-03-02", 160, 170),
	})
	_, ok := ComputeReturn(s, day("2020-03-02"), 2)
	assert.False(t, ok)
}

func TestComputeReturnAbsent(t *testing.T) {
	tests := []struct {
		name string
		bars []models.PriceBar
	}{
		{"no next day", []models.PriceBar{bar("X", "2020-03-02", 100, 90)}},
		{"bad entry open", []models.PriceBar{
			bar("X", "2020-03-02", 100, 90),
			bar("X", "2020-03-03", 0, 88),
			bar("X", "2023-01-01", 1, 1),
		}},
		{"bad exit close", []models.PriceBar{
			bar("X", "2020-03-02", 100, 90),
			bar("X", "2020-03-03", 85, 88),
			bar("X", "2022-03-03", 100, math.NaN()),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ComputeReturn(NewSeries("X", tt.bars), day("2020-03-02"), 2)
			assert.False(t, ok)
		})
	}
	_, ok := ComputeReturn(nil, day("2020-03-02"), 2)
	assert.False(t, ok)
}

func TestComputeBenchmarkReturnFirstOnOrAfter(t *testing.T) {
	s := NewSeries("SPY", []models.PriceBar{
		bar("SPY", "2020-03-02", 100, 90),
		bar("SPY", "2020-03-03", 100, 100),
		bar("SPY", "2022-03-02", 110, 110),
		bar("SPY", "2022-03-08", 130, 130),
	})
	// nearest to 2022-03-03 is 2022-03-02, but the benchmark waits for 2022-03-08
	res, ok := ComputeBenchmarkReturn(s, day("2020-03-02"), 2)
	require.True(t, ok)
	assert.Equal(t, day("2022-03-08"), res.ExitDate)
	assert.InDelta(t, 30.0, res.ReturnPct, 1e-9)

	stock, ok := ComputeReturn(s, day("2020-03-02"), 2)
	require.True(t, ok)
	assert.Equal(t, day("2022-03-02"), stock.ExitDate)
	assert.InDelta(t, 10.0, stock.ReturnPct, 1e-9)

	_, ok = ComputeBenchmarkReturn(s, day("2020-03-02"), 5)
	assert.False(t, ok)
}

func TestPriceDataTradingDays(t *testing.T) {
	data := PriceData{
		"A": NewSeries("A", []models.PriceBar{bar("A", "2020-01-02", 1, 1), bar("A", "2020-01-06", 1, 1)}),
		"B": NewSeries("B", []models.PriceBar{bar("B", "2020-01-03", 1, 1), bar("B", "2020-01-06", 1, 1), bar("B", "2020-02-01", 1, 1)}),
	}
	got := data.TradingDays(day("2020-01-01"), day("2020-01-31"))
	assert.Equal(t, []time.Time{day("2020-01-02"), day("2020-01-03"), day("2020-01-06")}, got)
}
