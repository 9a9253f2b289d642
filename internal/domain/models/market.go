package models

import (
	"math"
	"time"
)

// PriceBar is one daily OHLCV record. Date is a calendar date at UTC midnight.
// A missing price is NaN.
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// UsablePrice reports whether p can be traded at: present, finite and positive.
func UsablePrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// UniverseSnapshot lists index members as of EffectiveDate.
type UniverseSnapshot struct {
	EffectiveDate time.Time `json:"effective_date"`
	Tickers       []string  `json:"tickers"`
}

// Attributes are the per-ticker descriptors used for scoring.
type Attributes struct {
	Industry      string  `json:"industry"`
	DividendYield float64 `json:"dividend_yield"` // percent
	Volume        int64   `json:"volume"`
}

// UnknownIndustry is the industry reported for tickers without metadata.
const UnknownIndustry = "unknown"

// DefaultAttributes is returned for tickers missing from the metadata source.
func DefaultAttributes() Attributes {
	return Attributes{Industry: UnknownIndustry}
}

// LoserRecord is one entry of a day's biggest-loser ranking. Rank 1 is the worst.
type LoserRecord struct {
	Ticker       string    `json:"ticker"`
	Date         time.Time `json:"date"`
	DailyLossPct float64   `json:"daily_loss_pct"`
	Rank         int       `json:"rank"`
}

// TradeResult is a simulated entry at the open after the loser date and an exit N years later.
type TradeResult struct {
	ReturnPct     float64   `json:"return_pct"`
	PurchaseDate  time.Time `json:"purchase_date"`
	PurchasePrice float64   `json:"purchase_price"`
	ExitDate      time.Time `json:"exit_date"`
	ExitPrice     float64   `json:"exit_price"`
}
