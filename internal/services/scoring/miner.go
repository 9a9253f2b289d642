package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"LoserLab/internal/domain/models"
	domsvc "LoserLab/internal/domain/service"
)

const (
	// MinSample is the number of picks with a return needed to learn weights.
	MinSample = 10
	// MinDifference is the smallest winners/losers gap a factor must show.
	MinDifference = 5.0
)

type sample struct {
	cand Candidate
	ret  float64
}

func samplesFor(picks []models.Pick, holdYears int) []sample {
	out := make([]sample, 0, len(picks))
	for _, p := range picks {
		if r, ok := p.ReturnFor(holdYears); ok {
			out = append(out, sample{cand: CandidateFor(p), ret: r})
		}
	}
	return out
}

// SuggestWeights compares the top quartile of picks by return against the
// bottom quartile and builds a formula from the predicates that separate them
// best, keeping one predicate per category. It falls back to the default
// formula when fewer than MinSample picks have a return or nothing separates.
func SuggestWeights(picks []models.Pick, holdYears int) models.ScoringFormula {
	samples := samplesFor(picks, holdYears)
	if len(samples) < MinSample {
		return models.DefaultFormula(holdYears, models.ReasonInsufficientSample)
	}

	returns := make([]float64, len(samples))
	for i, s := range samples {
		returns[i] = s.ret
	}
	top := quantile(returns, 0.75)
	bottom := quantile(returns, 0.25)

	var winners, losers []Candidate
	for _, s := range samples {
		if s.ret >= top {
			winners = append(winners, s.cand)
		}
		if s.ret <= bottom {
			losers = append(losers, s.cand)
		}
	}

	stats := make([]models.FactorStat, 0, len(catalogue))
	for _, def := range catalogue {
		w := sharePct(winners, def.test)
		l := sharePct(losers, def.test)
		raw := w - l
		stats = append(stats, models.FactorStat{
			Name:          def.name,
			Category:      def.category,
			WinnersPct:    round(w, 1),
			LosersPct:     round(l, 1),
			RawDifference: round(raw, 1),
			AbsDifference: round(math.Abs(raw), 1),
		})
	}

	var order []string
	best := make(map[string]models.FactorStat)
	for _, st := range stats {
		cur, seen := best[st.Category]
		if !seen {
			order = append(order, st.Category)
		}
		if !seen || st.AbsDifference > cur.AbsDifference {
			best[st.Category] = st
		}
	}

	bestNames := make(map[string]string, len(best))
	var kept []models.FactorStat
	for _, cat := range order {
		st := best[cat]
		bestNames[cat] = st.Name
		if st.AbsDifference >= MinDifference {
			kept = append(kept, st)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].AbsDifference > kept[j].AbsDifference })

	thresholds := &models.QuartileThresholds{
		TopQuartileReturn:    round(top, 1),
		BottomQuartileReturn: round(bottom, 1),
		WinnersCount:         len(winners),
		LosersCount:          len(losers),
		MinDifference:        MinDifference,
	}

	var total float64
	for _, st := range kept {
		total += st.AbsDifference
	}
	if total <= 0 {
		f := models.DefaultFormula(holdYears, models.ReasonNoFactor)
		f.AllFactors = stats
		f.BestPerCategory = bestNames
		f.Thresholds = thresholds
		return f
	}

	factors := make([]models.FormulaFactor, 0, len(kept))
	for _, st := range kept {
		polarity := models.PolarityNot
		if st.RawDifference > 0 {
			polarity = models.PolarityHas
		}
		factors = append(factors, models.FormulaFactor{
			Name:        st.Name,
			Category:    st.Category,
			Polarity:    polarity,
			Weight:      round(st.AbsDifference/total*100, 1),
			Description: describe(st.Name, polarity),
			WinnersPct:  st.WinnersPct,
			LosersPct:   st.LosersPct,
			Difference:  st.RawDifference,
		})
	}

	balance(factors)

	return models.ScoringFormula{
		HoldYears:       holdYears,
		Mode:            models.ModeQuartile,
		Learned:         true,
		Factors:         factors,
		AllFactors:      stats,
		BestPerCategory: bestNames,
		Thresholds:      thresholds,
	}
}

// balance moves the rounding residual onto the heaviest factor so weights add up to 100.
func balance(factors []models.FormulaFactor) {
	if len(factors) == 0 {
		return
	}
	var sum float64
	for _, f := range factors {
		sum += f.Weight
	}
	if diff := round(100-sum, 1); diff != 0 {
		factors[0].Weight = round(factors[0].Weight+diff, 1)
	}
}

func sharePct(cands []Candidate, test func(Candidate) bool) float64 {
	if len(cands) == 0 {
		return 0
	}
	n := 0
	for _, c := range cands {
		if test(c) {
			n++
		}
	}
	return float64(n) / float64(len(cands)) * 100
}

func describe(name, polarity string) string {
	label := strings.ReplaceAll(name, "_", " ")
	if polarity == models.PolarityHas {
		return fmt.Sprintf("Has %s", label)
	}
	return fmt.Sprintf("Does NOT have %s", label)
}

// QuartileSuggester learns predicate formulas with SuggestWeights.
type QuartileSuggester struct{}

func (QuartileSuggester) Suggest(picks []models.Pick, holdYears int) models.ScoringFormula {
	return SuggestWeights(picks, holdYears)
}

// CorrelationSuggester learns rule weights with SuggestCorrelationWeights.
type CorrelationSuggester struct{}

func (CorrelationSuggester) Suggest(picks []models.Pick, holdYears int) models.ScoringFormula {
	return SuggestCorrelationWeights(picks, holdYears)
}

// NewSuggester picks the weight discovery algorithm by mode name.
func NewSuggester(mode string) (domsvc.WeightSuggester, error) {
	switch mode {
	case "", models.ModeQuartile:
		return QuartileSuggester{}, nil
	case models.ModeCorrelation:
		return CorrelationSuggester{}, nil
	default:
		return nil, fmt.Errorf("unknown suggest mode: %s", mode)
	}
}
