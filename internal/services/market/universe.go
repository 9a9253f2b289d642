package market

import (
	"sort"
	"time"

	"LoserLab/internal/domain/models"
	"LoserLab/pkg/util"
)

// Resolver answers which tickers were index members on a given date.
// It is built once per run from the loaded snapshots and is read-only afterwards.
type Resolver struct {
	dates   []time.Time
	tickers [][]string
}

// NewResolver sorts the snapshots by effective date. When two snapshots share a
// date the one loaded last is kept. Ticker sets are sorted and deduplicated.
func NewResolver(snapshots []models.UniverseSnapshot) *Resolver {
	sorted := make([]models.UniverseSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return util.Day(sorted[i].EffectiveDate).Before(util.Day(sorted[j].EffectiveDate))
	})

	r := &Resolver{}
	for _, snap := range sorted {
		d := util.Day(snap.EffectiveDate)
		set := uniqueSorted(snap.Tickers)
		if n := len(r.dates); n > 0 && r.dates[n-1].Equal(d) {
			r.tickers[n-1] = set
			continue
		}
		r.dates = append(r.dates, d)
		r.tickers = append(r.tickers, set)
	}
	return r
}

// Len returns the number of distinct snapshot dates.
func (r *Resolver) Len() int { return len(r.dates) }

// Range returns the first and last effective dates.
func (r *Resolver) Range() (time.Time, time.Time, bool) {
	if len(r.dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return r.dates[0], r.dates[len(r.dates)-1], true
}

// EligibleTickers returns the members of the latest snapshot effective on or
// before date. Dates before the first snapshot resolve to the first snapshot.
// The result is empty only when no snapshots were loaded.
func (r *Resolver) EligibleTickers(date time.Time) []string {
	i := r.indexFor(date)
	if i < 0 {
		return nil
	}
	return r.tickers[i]
}

// TickersBetween returns the union of every snapshot in effect at some point in [from, to].
func (r *Resolver) TickersBetween(from, to time.Time) []string {
	i := r.indexFor(from)
	if i < 0 {
		return nil
	}
	end := util.Day(to)
	var all []string
	for j := i; j < len(r.dates); j++ {
		if j > i && r.dates[j].After(end) {
			break
		}
		all = append(all, r.tickers[j]...)
	}
	return uniqueSorted(all)
}

func (r *Resolver) indexFor(date time.Time) int {
	if len(r.dates) == 0 {
		return -1
	}
	d := util.Day(date)
	// first snapshot strictly after d; the one before it is in effect
	i := sort.Search(len(r.dates), func(i int) bool { return r.dates[i].After(d) })
	if i == 0 {
		return 0
	}
	return i - 1
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
