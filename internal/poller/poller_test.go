package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a2vstudio/a2v/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

// scriptedJobs replays a fixed status sequence and then repeats the last one.
type scriptedJobs struct {
	mu       sync.Mutex
	script   []api.JobStatus
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	failAt   int // 1-based call that fails; 0 never
}

func (s *scriptedJobs) JobStatus(ctx context.Context, jobID string) (api.JobStatus, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)

	n := int(s.calls.Add(1))
	if s.failAt != 0 && n == s.failAt {
		return api.JobStatus{}, errors.New("connection refused")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := min(n-1, len(s.script)-1)
	return s.script[idx], nil
}

func running(pct int) api.JobStatus {
	return api.JobStatus{State: api.StateRunning, Stage: api.StageTranscribing, Percent: pct}
}

func collect[T any](t *testing.T, h *Handle[T]) []Update[T] {
	t.Helper()
	var out []Update[T]
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-h.Updates():
			if !ok {
				return out
			}
			out = append(out, u)
		case <-timeout:
			t.Fatal("poller did not finish")
			return out
		}
	}
}

func TestStartJob_StopsOnSuccess(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{
		{State: api.StateQueued, Stage: api.StageSaving},
		running(40),
		{State: api.StateSucceeded, Stage: api.StageDone, Percent: 100},
	}}

	h := StartJob(context.Background(), src, "job-1", testInterval)
	updates := collect(t, h)

	require.Len(t, updates, 3)
	assert.Equal(t, api.StateQueued, updates[0].Snapshot.State)
	assert.Equal(t, 40, updates[1].Snapshot.Percent)
	assert.True(t, updates[2].Terminal)
	assert.True(t, updates[2].Final)
	assert.Equal(t, 3, updates[2].Seq)

	// Terminal stability: nothing is fetched after the terminal snapshot.
	time.Sleep(5 * testInterval)
	assert.EqualValues(t, 3, src.calls.Load())
	snap, ok := h.Snapshot()
	require.True(t, ok)
	assert.Equal(t, api.StateSucceeded, snap.State)
	assert.False(t, src.overlap.Load(), "fetches must not overlap")
}

func TestStartJob_FailedJobIsTerminalNotError(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{
		running(10),
		{State: api.StateFailed, Stage: api.StageError, Error: "ffmpeg exited 1"},
	}}

	h := StartJob(context.Background(), src, "job-1", testInterval)
	updates := collect(t, h)

	require.Len(t, updates, 2)
	last := updates[1]
	assert.NoError(t, last.Err)
	assert.True(t, last.Terminal)
	assert.Equal(t, "ffmpeg exited 1", last.Snapshot.Error)
	assert.NoError(t, h.Err())
}

func TestStartJob_TransportErrorStopsAndKeepsSnapshot(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{running(25)}, failAt: 2}

	h := StartJob(context.Background(), src, "job-1", testInterval)
	updates := collect(t, h)

	require.Len(t, updates, 2)
	last := updates[1]
	require.Error(t, last.Err)
	assert.False(t, last.Terminal, "observation failure is not a job state")
	assert.True(t, last.Final)
	assert.Equal(t, 25, last.Snapshot.Percent, "last known snapshot stays available")

	time.Sleep(5 * testInterval)
	assert.EqualValues(t, 2, src.calls.Load())
	assert.Error(t, h.Err())
}

func TestStart_ImmediateFirstFetch(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{running(1)}}

	h := StartJob(context.Background(), src, "job-1", time.Hour)
	defer h.Stop()

	select {
	case u := <-h.Updates():
		assert.Equal(t, 1, u.Seq)
	case <-time.After(time.Second):
		t.Fatal("first fetch should not wait for the interval")
	}
}

func TestStop_NoOrphanedTimers(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{running(5)}}

	h := StartJob(context.Background(), src, "job-1", testInterval)
	// Drain a few updates so the loop is mid-schedule.
	for i := 0; i < 3; i++ {
		<-h.Updates()
	}
	h.Stop()
	stoppedAt := src.calls.Load()

	time.Sleep(10 * testInterval)
	assert.Equal(t, stoppedAt, src.calls.Load(), "fetches continued after Stop")

	_, open := <-h.Updates()
	assert.False(t, open, "updates channel should be closed after Stop")

	// Stop is idempotent.
	h.Stop()
}

func TestStop_ActivateDeactivateCycles(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{running(5)}}

	for i := 0; i < 20; i++ {
		h := StartJob(context.Background(), src, "job-1", testInterval)
		if i%2 == 0 {
			<-h.Updates()
		}
		h.Stop()
	}
	settled := src.calls.Load()
	time.Sleep(10 * testInterval)
	assert.Equal(t, settled, src.calls.Load())
}

func TestStop_WithoutConsumer(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{running(5)}}

	h := StartJob(context.Background(), src, "job-1", testInterval)
	time.Sleep(5 * testInterval) // nobody reads Updates; the loop must not wedge Stop

	done := make(chan struct{})
	go func() {
		h.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked while updates were unread")
	}
}

func TestStop_CancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}

	h := Start(context.Background(), fetch, testInterval, func(int) bool { return false })
	<-started
	h.Stop()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, h.Fetches())
	_, ok := h.Snapshot()
	assert.False(t, ok)
}

func TestParentContextCancels(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{running(5)}}
	ctx, cancel := context.WithCancel(context.Background())

	h := StartJob(ctx, src, "job-1", testInterval)
	<-h.Updates()
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on parent cancellation")
	}
}

func TestNonMonotonicPercentTolerated(t *testing.T) {
	src := &scriptedJobs{script: []api.JobStatus{
		running(60),
		running(30),
		running(140),
		{State: api.StateSucceeded, Stage: api.StageDone, Percent: 100},
	}}

	h := StartJob(context.Background(), src, "job-1", testInterval)
	updates := collect(t, h)

	require.Len(t, updates, 4)
	assert.Equal(t, 30, updates[1].Snapshot.Percent, "each fetch replaces the snapshot")
	assert.Equal(t, 100, updates[2].Snapshot.ClampedPercent())
}
