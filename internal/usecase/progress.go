package usecase

import (
	"sync"

	"LoserLab/internal/domain/models"
)

// ProgressFunc receives progress events.
type ProgressFunc func(models.Progress)

// ProgressReporter forwards progress events while keeping the reported
// percentage monotonic. It is safe for concurrent use; an update below the
// maximum seen so far is dropped.
type ProgressReporter struct {
	mu  sync.Mutex
	max float64
	fn  ProgressFunc
}

func NewProgressReporter(fn ProgressFunc) *ProgressReporter {
	return &ProgressReporter{fn: fn, max: -1}
}

// Report publishes pct (clamped to [0,100]) with a stage label. It returns
// false when the update was dropped.
func (r *ProgressReporter) Report(pct float64, stage string) bool {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if pct < r.max {
		return false
	}
	r.max = pct
	if r.fn != nil {
		r.fn(models.Progress{Percent: pct, Stage: stage})
	}
	return true
}

// Current returns the highest percentage reported so far.
func (r *ProgressReporter) Current() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max < 0 {
		return 0
	}
	return r.max
}
