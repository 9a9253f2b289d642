package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LoserLab/internal/domain/models"
)

// blockingPrices holds every series request until the caller's context ends.
type blockingPrices struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingPrices) GetSeries(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestJobManagerDeleteCancelsRunningRun(t *testing.T) {
	_, universe, meta := newFixture()
	prices := &blockingPrices{started: make(chan struct{})}
	jm := NewJobManager(NewBacktester(prices, universe, meta), nil, nil, nil)
	defer jm.Shutdown()

	st, err := jm.StartTraining(models.RunRequest{StartDate: scanStart, EndDate: scanEnd, HoldYears: []int{2}})
	require.NoError(t, err)

	events, _, err := jm.Subscribe(st.RunID)
	require.NoError(t, err)

	select {
	case <-prices.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never requested prices")
	}

	require.NoError(t, jm.Delete(st.RunID))

	var last models.Progress
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case p, ok := <-events:
			if !ok {
				done = true
				break
			}
			last = p
		case <-timeout:
			t.Fatal("subscriber channel was not closed")
		}
	}
	assert.Equal(t, cancelledMessage, last.Stage)

	jm.Wait()
	_, err = jm.Status(st.RunID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, jm.Delete(st.RunID), models.ErrNotFound)
}

func TestJobManagerDeleteCompletedRun(t *testing.T) {
	prices, universe, meta := newFixture()
	jm := NewJobManager(NewBacktester(prices, universe, meta), nil, nil, nil)
	defer jm.Shutdown()

	st, err := jm.StartTraining(models.RunRequest{StartDate: scanStart, EndDate: scanEnd, HoldYears: []int{2}, TopK: 2})
	require.NoError(t, err)
	jm.Wait()

	got, err := jm.Status(st.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	require.NoError(t, jm.Delete(st.RunID))
	assert.Empty(t, jm.List())
}
