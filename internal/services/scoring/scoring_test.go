package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LoserLab/internal/domain/models"
)

func TestScoreScenarioD(t *testing.T) {
	attrs := models.Attributes{Industry: "Technology", DividendYield: 0.5, Volume: 40_000_000}
	assert.InDelta(t, 100.0, Score(attrs, -6, 1, models.DefaultWeights()), 1e-9)
}

func TestScoreRules(t *testing.T) {
	w := models.DefaultWeights()
	tests := []struct {
		name  string
		attrs models.Attributes
		loss  float64
		rank  int
		want  float64
	}{
		// dividend 15 + reit 10 + partial severity 30*0.8 + rank 10
		{"unknown industry mild loss", models.DefaultAttributes(), -4, 1, 15 + 10 + 24 + 10},
		{"flat day earns no severity", models.DefaultAttributes(), 0, 1, 15 + 10 + 10},
		{"gain never goes negative", models.DefaultAttributes(), 2, 6, 15 + 10},
		{"exactly -5 gets full partial", models.DefaultAttributes(), -5, 5, 15 + 10 + 30 + 2},
		{"reit high dividend", models.Attributes{Industry: "Equity REIT", DividendYield: 4, Volume: 1}, -8, 3, 30 + 6},
		{"healthcare matches case-insensitively", models.Attributes{Industry: "HEALTHCARE providers", DividendYield: 2}, -6, 2, 15 + 10 + 30 + 8},
		{"volume must exceed 30M", models.Attributes{Industry: "x", DividendYield: 2, Volume: 30_000_000}, -6, 1, 10 + 30 + 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.attrs, tt.loss, tt.rank, w)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestScoreClampsOversizedWeights(t *testing.T) {
	w := models.Weights{Industry: 80, Dividends: 80}
	attrs := models.Attributes{Industry: "software", DividendYield: 0}
	assert.Equal(t, 100.0, Score(attrs, -1, 9, w))
}

func TestRuleScorerUsesDefaults(t *testing.T) {
	attrs := models.Attributes{Industry: "Technology", DividendYield: 0.5, Volume: 40_000_000}
	assert.InDelta(t, 100.0, NewRuleScorer().Score(attrs, -6, 1), 1e-9)
}

func TestScoreFormulaPredicates(t *testing.T) {
	f := models.ScoringFormula{
		Factors: []models.FormulaFactor{
			{Name: "tech_sector", Category: "tech_sector", Polarity: models.PolarityHas, Weight: 60},
			{Name: "very_high_volume", Category: "volume", Polarity: models.PolarityNot, Weight: 40},
		},
	}
	tech := Candidate{Attributes: models.Attributes{Industry: "Semiconductors & Technology", Volume: 1}, Rank: 1}
	assert.Equal(t, 100.0, ScoreFormula(f, tech))

	tech.Volume = 60_000_000
	assert.Equal(t, 60.0, ScoreFormula(f, tech))

	other := Candidate{Attributes: models.Attributes{Industry: "banks", Volume: 60_000_000}}
	assert.Equal(t, 0.0, ScoreFormula(f, other))

	s := ForFormula(f)
	assert.Equal(t, 60.0, s.Score(tech.Attributes, 0, 1))
}

func TestForFormulaRuleFallback(t *testing.T) {
	s := ForFormula(models.DefaultFormula(2, models.ReasonInsufficientSample))
	_, ok := s.(*RuleScorer)
	assert.True(t, ok)
}

func TestQuantileInterpolates(t *testing.T) {
	xs := make([]float64, 40)
	for i := range xs {
		xs[i] = float64(40 - i)
	}
	assert.InDelta(t, 30.25, quantile(xs, 0.75), 1e-9)
	assert.InDelta(t, 10.75, quantile(xs, 0.25), 1e-9)
	assert.InDelta(t, 20.5, quantile(xs, 0.5), 1e-9)
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.75))
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 66.7, round(200.0/3, 1))
	assert.Equal(t, 0.3, round(0.25, 1))
	assert.Equal(t, -0.3, round(-0.25, 1))
}

// scenarioPicks builds 40 picks with returns 1..40. The top ten by return are
// technology names except one, the bottom ten include exactly one. Volume is
// very high for six winners and two losers. Everything else is uniform.
func scenarioPicks() []models.Pick {
	start := time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)
	picks := make([]models.Pick, 0, 40)
	for i := 1; i <= 40; i++ {
		industry := "unknown"
		var volume int64 = 1_000_000
		switch {
		case i > 30 && i != 31:
			industry = "Technology"
		case i == 1:
			industry = "Technology"
		}
		if (i > 30 && i <= 36) || i == 2 || i == 3 {
			volume = 60_000_000
		}
		picks = append(picks, models.Pick{
			LoserDate:     start.AddDate(0, 0, i),
			Ticker:        "T" + string(rune('A'+i%26)),
			DailyLossPct:  -4,
			Rank:          3,
			Industry:      industry,
			DividendYield: 0,
			Volume:        volume,
			Returns: []models.HoldingReturn{
				{Years: 2, Return: models.Float(float64(i)), BenchmarkReturn: models.Float(10)},
				{Years: 5},
			},
		})
	}
	return picks
}

func TestSuggestWeightsScenarioC(t *testing.T) {
	f := SuggestWeights(scenarioPicks(), 2)
	require.True(t, f.Learned)
	assert.Equal(t, models.ModeQuartile, f.Mode)
	require.NotNil(t, f.Thresholds)
	assert.Equal(t, 10, f.Thresholds.WinnersCount)
	assert.Equal(t, 10, f.Thresholds.LosersCount)

	require.Len(t, f.Factors, 2)
	top := f.Factors[0]
	assert.Equal(t, "tech_sector", top.Name)
	assert.Equal(t, models.PolarityHas, top.Polarity)
	assert.Equal(t, 90.0, top.WinnersPct)
	assert.Equal(t, 10.0, top.LosersPct)
	assert.Equal(t, 80.0, top.Difference)
	assert.Equal(t, 66.7, top.Weight)
	assert.Equal(t, "Has tech sector", top.Description)

	// very_high_volume and low_volume tie at 40; the catalogue order decides
	second := f.Factors[1]
	assert.Equal(t, "very_high_volume", second.Name)
	assert.Equal(t, "volume", second.Category)
	assert.Equal(t, 33.3, second.Weight)
	assert.Equal(t, "very_high_volume", f.BestPerCategory["volume"])

	for _, st := range f.AllFactors {
		if st.Name == "tech_sector" {
			assert.Equal(t, 80.0, st.AbsDifference)
		}
	}
	assert.Len(t, f.AllFactors, len(catalogue))
}

func TestSuggestWeightsProperties(t *testing.T) {
	picks := scenarioPicks()
	// vary every attribute so several categories compete
	for i := range picks {
		picks[i].Rank = i%5 + 1
		picks[i].DividendYield = float64(i%4) * 1.2
		picks[i].DailyLossPct = -2 - float64(i%7)*1.5
		if i%3 == 0 {
			picks[i].Industry = "Banks"
		}
	}
	a := SuggestWeights(picks, 2)
	b := SuggestWeights(picks, 2)
	assert.Equal(t, a, b)

	if a.Learned {
		assert.InDelta(t, 100.0, a.TotalWeight(), 0.1+1e-9)
		seen := map[string]bool{}
		for _, f := range a.Factors {
			assert.False(t, seen[f.Category], "category %s repeated", f.Category)
			seen[f.Category] = true
			assert.GreaterOrEqual(t, absf(f.Difference), MinDifference)
		}
		for i := 1; i < len(a.Factors); i++ {
			assert.GreaterOrEqual(t, absf(a.Factors[i-1].Difference), absf(a.Factors[i].Difference))
		}
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestSuggestWeightsFallsBack(t *testing.T) {
	f := SuggestWeights(scenarioPicks()[:9], 2)
	assert.False(t, f.Learned)
	assert.Equal(t, models.ModeDefault, f.Mode)
	assert.Equal(t, models.ReasonInsufficientSample, f.Reason)
	assert.Equal(t, models.DefaultWeights(), f.Weights)

	// the 5-year period has no returns at all
	f = SuggestWeights(scenarioPicks(), 5)
	assert.Equal(t, models.ReasonInsufficientSample, f.Reason)

	uniform := scenarioPicks()
	for i := range uniform {
		uniform[i].Industry = "unknown"
		uniform[i].Volume = 1
	}
	f = SuggestWeights(uniform, 2)
	assert.False(t, f.Learned)
	assert.Equal(t, models.ReasonNoFactor, f.Reason)
	assert.NotEmpty(t, f.AllFactors)
}

func TestSuggestCorrelationWeights(t *testing.T) {
	f := SuggestCorrelationWeights(scenarioPicks(), 2)
	require.True(t, f.Learned)
	assert.Equal(t, models.ModeCorrelation, f.Mode)
	assert.Empty(t, f.Factors)
	assert.InDelta(t, 100.0, f.Weights.Sum(), 0.1+1e-9)
	assert.Greater(t, f.Weights.Industry, 0.0)
	assert.Equal(t, 0.0, f.Weights.Dividends, "no variation")
	assert.Equal(t, 0.0, f.Weights.REIT, "no variation")

	assert.Equal(t, SuggestCorrelationWeights(scenarioPicks(), 2), f)
	assert.False(t, SuggestCorrelationWeights(scenarioPicks()[:5], 2).Learned)
}

func TestNewSuggester(t *testing.T) {
	s, err := NewSuggester("")
	require.NoError(t, err)
	assert.IsType(t, QuartileSuggester{}, s)

	s, err = NewSuggester(models.ModeCorrelation)
	require.NoError(t, err)
	assert.IsType(t, CorrelationSuggester{}, s)

	_, err = NewSuggester("llm")
	assert.Error(t, err)
}

func TestBalanceAbsorbsRoundingResidual(t *testing.T) {
	factors := []models.FormulaFactor{{Weight: 33.3}, {Weight: 33.3}, {Weight: 33.3}}
	balance(factors)
	assert.Equal(t, 33.4, factors[0].Weight)
	assert.InDelta(t, 100.0, factors[0].Weight+factors[1].Weight+factors[2].Weight, 1e-9)
}
