package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/apollo-indexer/internal/services"
)

type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*services.RefreshSummary, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return &services.RefreshSummary{}, f.err
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * 1-5"))
	assert.Error(t, ValidateSchedule("every night"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestRefreshScheduler_StartStop(t *testing.T) {
	s := NewRefreshScheduler(&fakeRefresher{}, "0 3 * * *", 0)

	require.NoError(t, s.Start(context.Background()))
	st := s.Status()
	assert.True(t, st.Running)
	require.NotNil(t, st.NextRunAt)
	assert.Equal(t, 3, st.NextRunAt.Hour())

	s.Stop()
	assert.False(t, s.Status().Running)
	assert.Nil(t, s.Status().NextRunAt)
}

func TestRefreshScheduler_StopsWithContext(t *testing.T) {
	s := NewRefreshScheduler(&fakeRefresher{}, "0 3 * * *", 0)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.Status().Running }, time.Second, 10*time.Millisecond)
}

func TestRefreshScheduler_InvalidAndDisabled(t *testing.T) {
	err := NewRefreshScheduler(&fakeRefresher{}, "not a schedule", 0).Start(context.Background())
	assert.Error(t, err)

	s := NewRefreshScheduler(&fakeRefresher{}, "", 0)
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Status().Running)
}

func TestRefreshScheduler_RunNow(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("fines: rejected")}
	s := NewRefreshScheduler(refresher, "", 0)

	require.NoError(t, s.RunNow())
	s.Wait()

	assert.Equal(t, int32(1), refresher.calls.Load())
	st := s.Status()
	assert.False(t, st.Refreshing)
	require.NotNil(t, st.LastRunAt)
	assert.Equal(t, "fines: rejected", st.LastError)
}

func TestRefreshScheduler_NoOverlap(t *testing.T) {
	refresher := &fakeRefresher{release: make(chan struct{})}
	s := NewRefreshScheduler(refresher, "", 0)

	require.NoError(t, s.RunNow())
	assert.ErrorIs(t, s.RunNow(), ErrRefreshInProgress)
	assert.True(t, s.Status().Refreshing)

	close(refresher.release)
	s.Wait()

	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.NoError(t, s.RunNow(), "a new refresh may start once the previous one finished")
	s.Wait()
	assert.Equal(t, int32(2), refresher.calls.Load())
}
