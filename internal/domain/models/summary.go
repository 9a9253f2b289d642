package models

// GroupStat aggregates returns for one breakdown bucket.
type GroupStat struct {
	Key       string  `json:"key"`
	AvgReturn float64 `json:"avg_return"`
	Picks     int     `json:"picks"`
	WinRate   float64 `json:"win_rate"`
}

// FactorCorrelation relates one attribute to realised returns.
type FactorCorrelation struct {
	Factor      string  `json:"factor"`
	Method      string  `json:"method"`
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	Note        string  `json:"note,omitempty"`
}

// TrainingSummary aggregates one holding period over every pick with a return.
type TrainingSummary struct {
	HoldYears          int                 `json:"hold_years"`
	TotalPicks         int                 `json:"total_picks"`
	WinRate            float64             `json:"win_rate"`
	AvgReturn          float64             `json:"avg_return"`
	MedianReturn       float64             `json:"median_return"`
	StdReturn          float64             `json:"std_return"`
	MinReturn          float64             `json:"min_return"`
	MaxReturn          float64             `json:"max_return"`
	BenchmarkAvgReturn *float64            `json:"benchmark_avg_return"`
	BenchmarkWinRate   *float64            `json:"benchmark_win_rate"`
	BeatBenchmarkRate  *float64            `json:"beat_benchmark_rate"`
	ByIndustry         []GroupStat         `json:"by_industry"`
	ByDay              []GroupStat         `json:"by_day"`
	ByRank             []GroupStat         `json:"by_rank"`
	ByLossSeverity     []GroupStat         `json:"by_loss_severity"`
	FactorCorrelations []FactorCorrelation `json:"factor_analysis"`
}

// SampleStats is the compact statistic block used by model evaluation.
type SampleStats struct {
	Count           int      `json:"count"`
	AvgReturn       *float64 `json:"avg_return"`
	WinRate         *float64 `json:"win_rate"`
	BenchmarkAvg    *float64 `json:"benchmark_avg_return,omitempty"`
	PicksPerWeek    *float64 `json:"picks_per_week,omitempty"`
}

// Evaluation compares all picks against the ones a formula keeps at a threshold.
type Evaluation struct {
	HoldYears  int         `json:"hold_years"`
	Threshold  float64     `json:"threshold"`
	AllPicks   SampleStats `json:"all_picks"`
	Filtered   SampleStats `json:"filtered_picks"`
	FilterRate float64     `json:"filter_rate"`
}
