package scoring

import (
	"strings"

	"LoserLab/internal/domain/models"
	domsvc "LoserLab/internal/domain/service"
)

const highVolumeShares = 30_000_000

// Candidate is everything the scoring rules look at.
type Candidate struct {
	models.Attributes
	DailyLossPct float64
	Rank         int
}

// CandidateFor extracts the scoring inputs of a pick.
func CandidateFor(p models.Pick) Candidate {
	return Candidate{Attributes: p.Attributes(), DailyLossPct: p.DailyLossPct, Rank: p.Rank}
}

func isTechOrHealth(industry string) bool {
	return containsAny(industry, "technology", "healthcare", "software")
}

func isREIT(industry string) bool {
	return containsAny(industry, "reit")
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Score evaluates the rule set with weights w. The result is within [0, 100].
func Score(attrs models.Attributes, dailyLossPct float64, rank int, w models.Weights) float64 {
	var score float64

	if isTechOrHealth(attrs.Industry) {
		score += w.Industry
	}
	if attrs.DividendYield < 1 {
		score += w.Dividends
	}
	if !isREIT(attrs.Industry) {
		score += w.REIT
	}

	if dailyLossPct < -5 {
		score += w.SeverityOfLoss
	} else {
		// linear partial credit, zero at a flat day
		partial := w.SeverityOfLoss * ((100 - (5+dailyLossPct)*20) / 100)
		if partial > 0 {
			score += partial
		}
	}

	if attrs.Volume > highVolumeShares {
		score += w.Volume
	}

	if r := w.Ranking - float64(rank-1)*(w.Ranking/5); r > 0 {
		score += r
	}

	return clamp(score)
}

// ScoreFormula scores a candidate under a formula. Predicate formulas add a
// factor's weight when its condition holds; rule formulas use Score.
func ScoreFormula(f models.ScoringFormula, c Candidate) float64 {
	if !f.IsPredicate() {
		return Score(c.Attributes, c.DailyLossPct, c.Rank, f.Weights)
	}
	var score float64
	for _, fac := range f.Factors {
		def, ok := factorByName[fac.Name]
		if !ok {
			continue
		}
		held := def.test(c)
		if (fac.Polarity == models.PolarityHas) == held {
			score += fac.Weight
		}
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// RuleScorer scores with fixed rule weights.
type RuleScorer struct {
	Weights models.Weights
}

// NewRuleScorer returns a scorer using the default weights.
func NewRuleScorer() *RuleScorer { return &RuleScorer{Weights: models.DefaultWeights()} }

func (s *RuleScorer) Score(attrs models.Attributes, dailyLossPct float64, rank int) float64 {
	return Score(attrs, dailyLossPct, rank, s.Weights)
}

// FormulaScorer scores with a learned or rule formula.
type FormulaScorer struct {
	formula models.ScoringFormula
}

// ForFormula adapts a formula to the Scorer interface.
func ForFormula(f models.ScoringFormula) domsvc.Scorer {
	if !f.IsPredicate() {
		return &RuleScorer{Weights: f.Weights}
	}
	return &FormulaScorer{formula: f}
}

func (s *FormulaScorer) Score(attrs models.Attributes, dailyLossPct float64, rank int) float64 {
	return ScoreFormula(s.formula, Candidate{Attributes: attrs, DailyLossPct: dailyLossPct, Rank: rank})
}

var (
	_ domsvc.Scorer = (*RuleScorer)(nil)
	_ domsvc.Scorer = (*FormulaScorer)(nil)
)
