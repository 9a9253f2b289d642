package models

import "time"

// RunRequest configures one backtest. Dates are inclusive calendar dates.
type RunRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	HoldYears []int     `json:"hold_years"`
	TopK      int       `json:"top_k"`
}

// MaxHold returns the longest holding period requested.
func (r RunRequest) MaxHold() int {
	m := 0
	for _, y := range r.HoldYears {
		if y > m {
			m = y
		}
	}
	return m
}

// Progress is one monotonic progress event.
type Progress struct {
	Percent float64 `json:"progress"`
	Stage   string  `json:"message"`
}

// RunResult is the durable output of a backtest.
type RunResult struct {
	RunID            string            `json:"run_id"`
	Request          RunRequest        `json:"request"`
	TotalTradingDays int               `json:"total_trading_days"`
	Picks            []Pick            `json:"picks"`
	Summaries        []TrainingSummary `json:"summaries"`
	Formulas         []ScoringFormula  `json:"suggested_formulas"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// FormulaFor returns the suggested formula for a holding period.
func (r *RunResult) FormulaFor(years int) (ScoringFormula, bool) {
	for _, f := range r.Formulas {
		if f.HoldYears == years {
			return f, true
		}
	}
	return ScoringFormula{}, false
}

// SummaryFor returns the training summary for a holding period.
func (r *RunResult) SummaryFor(years int) (TrainingSummary, bool) {
	for _, s := range r.Summaries {
		if s.HoldYears == years {
			return s, true
		}
	}
	return TrainingSummary{}, false
}

// Run statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run types.
const (
	RunTypeTraining = "training"
	RunTypeAnalysis = "analysis"
)

// RunStatus is the pollable state of a background run.
type RunStatus struct {
	RunID    string  `json:"run_id"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// ScoringModel is a saved formula with its threshold and training statistics.
type ScoringModel struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	TrainingRunID string         `json:"training_run_id,omitempty"`
	Formula       ScoringFormula `json:"formula"`
	Threshold     float64        `json:"threshold"`
	AvgReturn     *float64       `json:"avg_return,omitempty"`
	WinRate       *float64       `json:"win_rate,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AnalysisResult is a backtest re-scored under a chosen formula and filtered at a threshold.
type AnalysisResult struct {
	RunID         string         `json:"run_id"`
	Run           *RunResult     `json:"run"`
	Formula       ScoringFormula `json:"formula"`
	Threshold     float64        `json:"threshold"`
	Filtered      []Pick         `json:"filtered_picks"`
	FilteredCount int            `json:"filtered_count"`
	TotalCount    int            `json:"total_count"`
	FilterRate    float64        `json:"filter_rate"`
	Evaluations   []Evaluation   `json:"evaluations"`
}
