package scoring

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"LoserLab/internal/domain/models"
	domsvc "LoserLab/internal/domain/service"
	"LoserLab/pkg/util"
)

// ErrNoValidPicks is returned when no pick has a return for the holding period.
var ErrNoValidPicks = errors.New("no valid picks")

// Rescore returns copies of picks with ConfidenceScore recomputed by scorer.
func Rescore(picks []models.Pick, scorer domsvc.Scorer) []models.Pick {
	out := make([]models.Pick, len(picks))
	for i, p := range picks {
		p.ConfidenceScore = round(scorer.Score(p.Attributes(), p.DailyLossPct, p.Rank), 2)
		out[i] = p
	}
	return out
}

// FilterByThreshold keeps picks whose confidence score reaches threshold.
func FilterByThreshold(picks []models.Pick, threshold float64) []models.Pick {
	var out []models.Pick
	for _, p := range picks {
		if p.ConfidenceScore >= threshold {
			out = append(out, p)
		}
	}
	return out
}

// Evaluate re-scores the picks that have a return for holdYears and compares
// all of them against the ones scoring at or above threshold.
func Evaluate(picks []models.Pick, scorer domsvc.Scorer, threshold float64, holdYears int) (models.Evaluation, error) {
	var valid []models.Pick
	for _, p := range picks {
		if _, ok := p.ReturnFor(holdYears); ok {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return models.Evaluation{}, ErrNoValidPicks
	}

	scored := Rescore(valid, scorer)
	filtered := FilterByThreshold(scored, threshold)

	ev := models.Evaluation{
		HoldYears: holdYears,
		Threshold: threshold,
		AllPicks:  sampleStats(scored, holdYears),
		Filtered:  sampleStats(filtered, holdYears),
	}
	ev.Filtered.BenchmarkAvg = nil
	ev.AllPicks.PicksPerWeek = nil
	ev.FilterRate = round(float64(len(filtered))/float64(len(scored))*100, 2)
	return ev, nil
}

func sampleStats(picks []models.Pick, holdYears int) models.SampleStats {
	st := models.SampleStats{Count: len(picks)}
	if len(picks) == 0 {
		return st
	}
	var returns, bench []float64
	first, last := picks[0].LoserDate, picks[0].LoserDate
	for _, p := range picks {
		r, _ := p.ReturnFor(holdYears)
		returns = append(returns, r)
		if b, ok := p.BenchmarkFor(holdYears); ok {
			bench = append(bench, b)
		}
		if p.LoserDate.Before(first) {
			first = p.LoserDate
		}
		if p.LoserDate.After(last) {
			last = p.LoserDate
		}
	}
	st.AvgReturn = models.Float(round(stat.Mean(returns, nil), 2))
	st.WinRate = models.Float(round(winRate(returns), 2))
	if len(bench) > 0 {
		st.BenchmarkAvg = models.Float(round(stat.Mean(bench, nil), 2))
	}
	perWeek := 0.0
	if weeks := float64(util.DaysBetween(first, last)) / 7; weeks > 0 {
		perWeek = round(float64(len(picks))/weeks, 2)
	}
	st.PicksPerWeek = models.Float(perWeek)
	return st
}
