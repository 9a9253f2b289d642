package scoring

import (
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"LoserLab/internal/domain/models"
)

const (
	industryBreakdownLimit = 20
	significanceLevel      = 0.05
)

// lossBuckets are right-closed intervals over the daily loss percentage.
var lossBuckets = []struct {
	label string
	upper float64
}{
	{"<-10%", -10},
	{"-10 to -7%", -7},
	{"-7 to -5%", -5},
	{"-5 to -3%", -3},
	{"-3 to 0%", 0},
}

// Summarize aggregates every pick that has a return for holdYears.
func Summarize(picks []models.Pick, holdYears int) models.TrainingSummary {
	sum := models.TrainingSummary{HoldYears: holdYears}

	var valid []models.Pick
	var returns, bench []float64
	beat, paired := 0, 0
	for _, p := range picks {
		r, ok := p.ReturnFor(holdYears)
		if !ok {
			continue
		}
		valid = append(valid, p)
		returns = append(returns, r)
		if b, ok := p.BenchmarkFor(holdYears); ok {
			bench = append(bench, b)
			paired++
			if r > b {
				beat++
			}
		}
	}
	sum.TotalPicks = len(valid)
	if len(valid) == 0 {
		return sum
	}

	sum.WinRate = round(winRate(returns), 2)
	sum.AvgReturn = round(stat.Mean(returns, nil), 2)
	sum.MedianReturn = round(quantile(returns, 0.5), 2)
	if len(returns) > 1 {
		sum.StdReturn = round(stat.StdDev(returns, nil), 2)
	}
	sum.MinReturn = round(floats.Min(returns), 2)
	sum.MaxReturn = round(floats.Max(returns), 2)

	if len(bench) > 0 {
		sum.BenchmarkAvgReturn = models.Float(round(stat.Mean(bench, nil), 2))
		sum.BenchmarkWinRate = models.Float(round(winRate(bench), 2))
		sum.BeatBenchmarkRate = models.Float(round(float64(beat)/float64(paired)*100, 2))
	}

	sum.ByIndustry = groupBy(valid, holdYears, func(p models.Pick) (string, bool) { return p.Industry, true })
	sort.SliceStable(sum.ByIndustry, func(i, j int) bool { return sum.ByIndustry[i].AvgReturn > sum.ByIndustry[j].AvgReturn })
	if len(sum.ByIndustry) > industryBreakdownLimit {
		sum.ByIndustry = sum.ByIndustry[:industryBreakdownLimit]
	}

	sum.ByDay = groupBy(valid, holdYears, func(p models.Pick) (string, bool) { return p.LoserDate.Weekday().String(), true })
	sort.SliceStable(sum.ByDay, func(i, j int) bool { return weekdayIndex(sum.ByDay[i].Key) < weekdayIndex(sum.ByDay[j].Key) })

	sum.ByRank = groupBy(valid, holdYears, func(p models.Pick) (string, bool) { return strconv.Itoa(p.Rank), true })
	sort.SliceStable(sum.ByRank, func(i, j int) bool {
		a, _ := strconv.Atoi(sum.ByRank[i].Key)
		b, _ := strconv.Atoi(sum.ByRank[j].Key)
		return a < b
	})

	sum.ByLossSeverity = groupBy(valid, holdYears, lossBucket)
	sort.SliceStable(sum.ByLossSeverity, func(i, j int) bool {
		return bucketIndex(sum.ByLossSeverity[i].Key) < bucketIndex(sum.ByLossSeverity[j].Key)
	})

	sum.FactorCorrelations = FactorCorrelations(valid, holdYears)
	return sum
}

func winRate(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := 0
	for _, x := range xs {
		if x > 0 {
			n++
		}
	}
	return float64(n) / float64(len(xs)) * 100
}

func groupBy(picks []models.Pick, holdYears int, key func(models.Pick) (string, bool)) []models.GroupStat {
	groups := make(map[string][]float64)
	var order []string
	for _, p := range picks {
		k, ok := key(p)
		if !ok {
			continue
		}
		r, _ := p.ReturnFor(holdYears)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Strings(order)

	out := make([]models.GroupStat, 0, len(order))
	for _, k := range order {
		xs := groups[k]
		out = append(out, models.GroupStat{
			Key:       k,
			AvgReturn: round(stat.Mean(xs, nil), 2),
			Picks:     len(xs),
			WinRate:   round(winRate(xs), 2),
		})
	}
	return out
}

func lossBucket(p models.Pick) (string, bool) {
	prev := math.Inf(-1)
	for _, b := range lossBuckets {
		if p.DailyLossPct > prev && p.DailyLossPct <= b.upper {
			return b.label, true
		}
		prev = b.upper
	}
	return "", false
}

func bucketIndex(label string) int {
	for i, b := range lossBuckets {
		if b.label == label {
			return i
		}
	}
	return len(lossBuckets)
}

func weekdayIndex(name string) int {
	for d := time.Monday; d <= time.Saturday; d++ {
		if d.String() == name {
			return int(d)
		}
	}
	return 7 // Sunday last
}

// FactorCorrelations relates the scoring attributes to realised returns.
// Binary attributes use point-biserial correlation, loss severity Pearson and
// rank Spearman. Attributes without variation are omitted.
func FactorCorrelations(picks []models.Pick, holdYears int) []models.FactorCorrelation {
	samples := samplesFor(picks, holdYears)
	n := len(samples)
	if n < 3 {
		return nil
	}
	returns := make([]float64, n)
	for i, s := range samples {
		returns[i] = s.ret
	}
	if !varies(returns) {
		return nil
	}

	column := func(f func(Candidate) float64) []float64 {
		out := make([]float64, n)
		for i, s := range samples {
			out[i] = f(s.cand)
		}
		return out
	}

	binary := []struct {
		name string
		test func(Candidate) bool
	}{
		{"industry_tech_health", func(c Candidate) bool { return isTechOrHealth(c.Industry) }},
		{"low_dividend", func(c Candidate) bool { return c.DividendYield < 1 }},
		{"non_reit", func(c Candidate) bool { return !isREIT(c.Industry) }},
		{"high_volume", func(c Candidate) bool { return c.Volume > highVolumeShares }},
	}

	var out []models.FactorCorrelation
	for _, b := range binary {
		xs := column(func(c Candidate) float64 { return indicator(b.test(c)) })
		if !varies(xs) {
			continue
		}
		out = append(out, correlationResult(b.name, "point_biserial", stat.Correlation(xs, returns, nil), n, ""))
	}

	loss := column(func(c Candidate) float64 { return c.DailyLossPct })
	if varies(loss) {
		out = append(out, correlationResult("loss_severity", "pearson", stat.Correlation(loss, returns, nil), n,
			"Negative correlation means bigger losses lead to better returns"))
	}

	rank := column(func(c Candidate) float64 { return float64(c.Rank) })
	if varies(rank) {
		out = append(out, correlationResult("ranking", "spearman", stat.Correlation(ranks(rank), ranks(returns), nil), n,
			"Negative correlation means lower rank (bigger loser) leads to better returns"))
	}
	return out
}

func correlationResult(name, method string, r float64, n int, note string) models.FactorCorrelation {
	p := corrPValue(r, n)
	return models.FactorCorrelation{
		Factor:      name,
		Method:      method,
		Correlation: round(r, 4),
		PValue:      round(p, 4),
		Significant: p < significanceLevel,
		Note:        note,
	}
}

// corrPValue is the two-sided p-value of a correlation coefficient under the
// Student t distribution with n-2 degrees of freedom.
func corrPValue(r float64, n int) float64 {
	if math.IsNaN(r) || n < 3 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

// ranks assigns 1-based ranks, averaging ties.
func ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	out := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
