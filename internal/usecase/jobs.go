package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"LoserLab/internal/domain/models"
	drepo "LoserLab/internal/domain/repository"
	domsvc "LoserLab/internal/domain/service"
	"LoserLab/internal/services/scoring"
	applogger "LoserLab/pkg/logger"
)

// ErrRunNotReady is returned for results of a run that has not completed.
var ErrRunNotReady = errors.New("run not completed")

const (
	subscriberBuffer = 16
	cancelledMessage = "cancelled"
)

type job struct {
	status   models.RunStatus
	created  time.Time
	result   *models.RunResult
	analysis *models.AnalysisResult
	subs     map[chan models.Progress]struct{}
	cancel   context.CancelFunc
}

// JobManager runs backtests in the background and tracks their status.
type JobManager struct {
	bt      *Backtester
	sink    *ResultSink
	metrics drepo.Metrics
	l       *applogger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*job
}

func NewJobManager(bt *Backtester, sink *ResultSink, metrics drepo.Metrics, l *applogger.Logger) *JobManager {
	if l == nil {
		l = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobManager{
		bt:      bt,
		sink:    sink,
		metrics: metrics,
		l:       l,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*job),
	}
}

// SetRunTimeout bounds each run; zero means no limit.
func (m *JobManager) SetRunTimeout(d time.Duration) { m.timeout = d }

// StartTraining validates req and starts a training run.
func (m *JobManager) StartTraining(req models.RunRequest) (models.RunStatus, error) {
	return m.start(models.RunTypeTraining, req, func(run *models.RunResult, j *job) {})
}

// StartAnalysis starts a run whose picks are re-scored with formula and
// filtered at threshold once the backtest completes.
func (m *JobManager) StartAnalysis(req models.RunRequest, formula models.ScoringFormula, threshold float64) (models.RunStatus, error) {
	return m.start(models.RunTypeAnalysis, req, func(run *models.RunResult, j *job) {
		j.analysis = Analyze(run, formula, threshold)
	})
}

func (m *JobManager) start(kind string, req models.RunRequest, finish func(*models.RunResult, *job)) (models.RunStatus, error) {
	req, err := Normalize(req)
	if err != nil {
		return models.RunStatus{}, err
	}
	id := uuid.NewString()
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, m.timeout)
	} else {
		ctx, cancel = context.WithCancel(m.ctx)
	}
	j := &job{
		status:  models.RunStatus{RunID: id, Type: kind, Status: models.StatusRunning, Message: "Starting..."},
		created: time.Now(),
		subs:    make(map[chan models.Progress]struct{}),
		cancel:  cancel,
	}
	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()
	m.record(func(mt drepo.Metrics) { mt.RecordRun(kind, models.StatusRunning) })

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		run, err := m.bt.RunWithID(ctx, id, req, func(p models.Progress) { m.progress(id, p) })
		if err == nil {
			m.mu.Lock()
			finish(run, j)
			m.mu.Unlock()
			if m.sink != nil {
				if derr := m.sink.Deliver(m.ctx, run); derr != nil {
					m.l.Error("deliver run failed", applogger.String("run_id", id), applogger.Error(derr))
				}
			}
		}
		m.complete(j, run, err)
	}()

	return j.status, nil
}

func (m *JobManager) progress(id string, p models.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	j.status.Progress = p.Percent
	j.status.Message = p.Stage
	for ch := range j.subs {
		select {
		case ch <- p:
		default:
		}
	}
	m.record(func(mt drepo.Metrics) { mt.RecordProgress(id, p.Percent) })
}

func (m *JobManager) complete(j *job, run *models.RunResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := j.status.RunID
	switch {
	case errors.Is(err, context.Canceled):
		j.status.Status = models.StatusFailed
		j.status.Message = cancelledMessage
		m.l.Info("run cancelled", applogger.String("run_id", id))
	case err != nil:
		j.status.Status = models.StatusFailed
		j.status.Message = err.Error()
		m.l.Error("run failed", applogger.String("run_id", id), applogger.Error(err))
	default:
		j.status.Status = models.StatusCompleted
		j.status.Progress = 100
		j.status.Message = "Complete"
		j.result = run
	}
	final := models.Progress{Percent: j.status.Progress, Stage: j.status.Message}
	for ch := range j.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
	}
	j.subs = nil
	kind, status := j.status.Type, j.status.Status
	m.record(func(mt drepo.Metrics) { mt.RecordRun(kind, status) })
}

func (m *JobManager) record(fn func(drepo.Metrics)) {
	if m.metrics != nil {
		fn(m.metrics)
	}
}

// Status returns the current state of a run.
func (m *JobManager) Status(id string) (models.RunStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.RunStatus{}, models.ErrNotFound
	}
	return j.status, nil
}

// List returns every tracked run, newest first.
func (m *JobManager) List() []models.RunStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type entry struct {
		created time.Time
		status  models.RunStatus
	}
	all := make([]entry, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, entry{j.created, j.status})
	}
	sort.Slice(all, func(i, k int) bool { return all[i].created.After(all[k].created) })
	out := make([]models.RunStatus, len(all))
	for i, e := range all {
		out[i] = e.status
	}
	return out
}

// Result returns a completed run. Runs not tracked in memory are looked up in
// the result store.
func (m *JobManager) Result(ctx context.Context, id string) (*models.RunResult, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	var (
		status string
		run    *models.RunResult
	)
	if ok {
		status, run = j.status.Status, j.result
	}
	m.mu.RUnlock()

	if !ok {
		if m.sink == nil {
			return nil, models.ErrNotFound
		}
		return m.sink.Lookup(ctx, id)
	}
	if status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrRunNotReady, status)
	}
	return run, nil
}

// Analysis returns the filtered outcome of a completed analysis run.
func (m *JobManager) Analysis(id string) (*models.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok || j.status.Type != models.RunTypeAnalysis {
		return nil, models.ErrNotFound
	}
	if j.status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrRunNotReady, j.status.Status)
	}
	return j.analysis, nil
}

// Delete forgets a run, cancelling it first when it is still running.
// Subscribers of a cancelled run receive a final "cancelled" event.
func (m *JobManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return models.ErrNotFound
	}
	if j.status.Status == models.StatusRunning || j.status.Status == models.StatusPending {
		j.cancel()
		m.l.Info("cancelling run", applogger.String("run_id", id))
	}
	delete(m.jobs, id)
	return nil
}

// Subscribe streams progress events of a run. The channel is closed when the
// run ends; cancel releases it early.
func (m *JobManager) Subscribe(id string) (<-chan models.Progress, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	ch := make(chan models.Progress, subscriberBuffer)
	ch <- models.Progress{Percent: j.status.Progress, Stage: j.status.Message}
	if j.subs == nil {
		close(ch)
		return ch, func() {}, nil
	}
	j.subs[ch] = struct{}{}
	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := j.subs[ch]; ok {
			delete(j.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// Evaluate scores a completed run's picks with scorer and compares the ones
// reaching threshold against all of them.
func (m *JobManager) Evaluate(ctx context.Context, runID string, holdYears int, scorer domsvc.Scorer, threshold float64) (models.Evaluation, error) {
	run, err := m.Result(ctx, runID)
	if err != nil {
		return models.Evaluation{}, err
	}
	return scoring.Evaluate(run.Picks, scorer, threshold, holdYears)
}

// Wait blocks until every started run has finished.
func (m *JobManager) Wait() { m.wg.Wait() }

// Shutdown cancels running jobs and waits for them.
func (m *JobManager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

// Analyze re-scores a run with formula and keeps the picks reaching threshold.
func Analyze(run *models.RunResult, formula models.ScoringFormula, threshold float64) *models.AnalysisResult {
	scorer := scoring.ForFormula(formula)
	run.Picks = scoring.Rescore(run.Picks, scorer)
	filtered := scoring.FilterByThreshold(run.Picks, threshold)

	res := &models.AnalysisResult{
		RunID:         run.RunID,
		Run:           run,
		Formula:       formula,
		Threshold:     threshold,
		Filtered:      filtered,
		FilteredCount: len(filtered),
		TotalCount:    len(run.Picks),
	}
	if len(run.Picks) > 0 {
		res.FilterRate = float64(len(filtered)) / float64(len(run.Picks)) * 100
	}
	for _, y := range run.Request.HoldYears {
		if ev, err := scoring.Evaluate(run.Picks, scorer, threshold, y); err == nil {
			res.Evaluations = append(res.Evaluations, ev)
		}
	}
	return res
}
