package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"LoserLab/internal/domain/models"
)

// SuggestCorrelationWeights derives rule weights from the Pearson correlation
// between each rule's indicator and the realised return. Negative correlations
// count as zero; the rest are normalised to 100.
func SuggestCorrelationWeights(picks []models.Pick, holdYears int) models.ScoringFormula {
	samples := samplesFor(picks, holdYears)
	if len(samples) < MinSample {
		return models.DefaultFormula(holdYears, models.ReasonInsufficientSample)
	}

	n := len(samples)
	returns := make([]float64, n)
	ind := map[string][]float64{
		"industry":         make([]float64, n),
		"dividends":        make([]float64, n),
		"reit":             make([]float64, n),
		"volume":           make([]float64, n),
		"severity_of_loss": make([]float64, n),
		"ranking":          make([]float64, n),
	}
	for i, s := range samples {
		c := s.cand
		returns[i] = s.ret
		ind["industry"][i] = indicator(isTechOrHealth(c.Industry))
		ind["dividends"][i] = indicator(c.DividendYield < 1)
		ind["reit"][i] = indicator(!isREIT(c.Industry))
		ind["volume"][i] = indicator(c.Volume > highVolumeShares)
		ind["severity_of_loss"][i] = indicator(c.DailyLossPct < -5)
		ind["ranking"][i] = float64(6 - c.Rank)
	}

	corr := make(map[string]float64, len(ind))
	var total float64
	for _, name := range ruleNames {
		xs := ind[name]
		v := 0.0
		if varies(xs) {
			if r := stat.Correlation(xs, returns, nil); !math.IsNaN(r) && r > 0 {
				v = r
			}
		}
		corr[name] = v
		total += v
	}
	if total <= 0 {
		return models.DefaultFormula(holdYears, models.ReasonNoFactor)
	}

	norm := func(name string) float64 { return round(corr[name]/total*100, 1) }
	return models.ScoringFormula{
		HoldYears: holdYears,
		Mode:      models.ModeCorrelation,
		Learned:   true,
		Weights: models.Weights{
			Industry:       norm("industry"),
			Dividends:      norm("dividends"),
			REIT:           norm("reit"),
			SeverityOfLoss: norm("severity_of_loss"),
			Ranking:        norm("ranking"),
			Volume:         norm("volume"),
		},
	}
}

// ruleNames fixes the summation order so results are reproducible.
var ruleNames = []string{"industry", "dividends", "reit", "volume", "severity_of_loss", "ranking"}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func varies(xs []float64) bool {
	if len(xs) == 0 {
		return false
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return true
		}
	}
	return false
}
