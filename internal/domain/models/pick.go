package models

import "time"

// HoldingReturn holds the outcome for one holding period. Nil means the
// return could not be computed (no entry, not enough future data, bad price).
type HoldingReturn struct {
	Years           int      `json:"years"`
	Return          *float64 `json:"return"`
	BenchmarkReturn *float64 `json:"benchmark_return"`
}

// Pick is a biggest-loser selection with its attributes and realised returns.
type Pick struct {
	LoserDate       time.Time       `json:"loser_date"`
	Ticker          string          `json:"ticker"`
	DailyLossPct    float64         `json:"daily_loss_pct"`
	Rank            int             `json:"rank"`
	Industry        string          `json:"industry"`
	DividendYield   float64         `json:"dividend_yield"`
	Volume          int64           `json:"volume"`
	PurchaseDate    *time.Time      `json:"purchase_date"`
	PurchasePrice   *float64        `json:"purchase_price"`
	ConfidenceScore float64         `json:"confidence_score"`
	Returns         []HoldingReturn `json:"returns"`
}

// Attributes returns the scoring attributes carried by the pick.
func (p Pick) Attributes() Attributes {
	return Attributes{Industry: p.Industry, DividendYield: p.DividendYield, Volume: p.Volume}
}

// ReturnFor returns the pick's return for the holding period, if present.
func (p Pick) ReturnFor(years int) (float64, bool) {
	for _, r := range p.Returns {
		if r.Years == years && r.Return != nil {
			return *r.Return, true
		}
	}
	return 0, false
}

// BenchmarkFor returns the benchmark return for the holding period, if present.
func (p Pick) BenchmarkFor(years int) (float64, bool) {
	for _, r := range p.Returns {
		if r.Years == years && r.BenchmarkReturn != nil {
			return *r.BenchmarkReturn, true
		}
	}
	return 0, false
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
