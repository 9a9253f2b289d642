package models

// DefaultThreshold is the confidence score a pick must reach to be kept by an analysis run.
const DefaultThreshold = 65.0

// Weights are the rule weights of the default confidence scorer.
type Weights struct {
	Industry       float64 `json:"industry"`
	Dividends      float64 `json:"dividends"`
	REIT           float64 `json:"reit"`
	SeverityOfLoss float64 `json:"severity_of_loss"`
	Ranking        float64 `json:"ranking"`
	Volume         float64 `json:"volume"`
}

// DefaultWeights returns the baseline rule weights; they sum to 100.
func DefaultWeights() Weights {
	return Weights{
		Industry:       15,
		Dividends:      15,
		REIT:           10,
		SeverityOfLoss: 30,
		Ranking:        10,
		Volume:         20,
	}
}

// Sum returns the total of all rule weights.
func (w Weights) Sum() float64 {
	return w.Industry + w.Dividends + w.REIT + w.SeverityOfLoss + w.Ranking + w.Volume
}

// Polarity of a formula factor.
const (
	PolarityHas = "HAS"
	PolarityNot = "NOT"
)

// Formula modes.
const (
	ModeQuartile    = "quartile"
	ModeCorrelation = "correlation"
	ModeDefault     = "default"
)

// Reasons a formula falls back to defaults.
const (
	ReasonInsufficientSample = "insufficient_sample"
	ReasonNoFactor           = "no_discriminating_factor"
)

// FormulaFactor is one weighted predicate of a learned formula.
type FormulaFactor struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Polarity    string  `json:"condition"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
	WinnersPct  float64 `json:"winners_pct"`
	LosersPct   float64 `json:"losers_pct"`
	Difference  float64 `json:"difference"`
}

// FactorStat records how often a catalogue predicate held among winners and losers.
type FactorStat struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	WinnersPct    float64 `json:"winners_pct"`
	LosersPct     float64 `json:"losers_pct"`
	RawDifference float64 `json:"raw_difference"`
	AbsDifference float64 `json:"abs_difference"`
}

// QuartileThresholds describes the winner/loser split used while mining.
type QuartileThresholds struct {
	TopQuartileReturn    float64 `json:"top_25_pct_return"`
	BottomQuartileReturn float64 `json:"bottom_25_pct_return"`
	WinnersCount         int     `json:"winners_count"`
	LosersCount          int     `json:"losers_count"`
	MinDifference        float64 `json:"min_difference_threshold"`
}

// ScoringFormula is either predicate based (Factors non-empty) or rule based (Weights).
type ScoringFormula struct {
	HoldYears       int                 `json:"hold_years"`
	Mode            string              `json:"mode"`
	Learned         bool                `json:"learned"`
	Reason          string              `json:"reason,omitempty"`
	Factors         []FormulaFactor     `json:"formula,omitempty"`
	Weights         Weights             `json:"weights"`
	AllFactors      []FactorStat        `json:"all_factors_tested,omitempty"`
	BestPerCategory map[string]string   `json:"best_per_category,omitempty"`
	Thresholds      *QuartileThresholds `json:"thresholds,omitempty"`
}

// DefaultFormula is the rule-based fallback formula.
func DefaultFormula(holdYears int, reason string) ScoringFormula {
	return ScoringFormula{
		HoldYears: holdYears,
		Mode:      ModeDefault,
		Reason:    reason,
		Weights:   DefaultWeights(),
	}
}

// IsPredicate reports whether the formula scores through learned predicates.
func (f ScoringFormula) IsPredicate() bool { return len(f.Factors) > 0 }

// TotalWeight returns the sum of factor weights, or of rule weights for rule formulas.
func (f ScoringFormula) TotalWeight() float64 {
	if !f.IsPredicate() {
		return f.Weights.Sum()
	}
	var total float64
	for _, fac := range f.Factors {
		total += fac.Weight
	}
	return total
}
