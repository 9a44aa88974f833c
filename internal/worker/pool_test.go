package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	pool := NewPool(zap.NewNop(), 3, 16)
	pool.Start(context.Background())
	defer pool.Stop()

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, pool.Submit(func(ctx context.Context) {
			done.Add(1)
		}))
	}

	assert.True(t, waitFor(t, 2*time.Second, func() bool { return done.Load() == 10 }),
		"all jobs should run")
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	pool := NewPool(zap.NewNop(), 1, 1)
	pool.Start(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	// worker is busy; one slot in the queue, then drops
	assert.True(t, pool.Submit(func(ctx context.Context) {}))

	returned := make(chan bool)
	go func() { returned <- pool.Submit(func(ctx context.Context) {}) }()

	select {
	case ok := <-returned:
		assert.False(t, ok, "submit on a full queue should report a drop")
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	assert.Equal(t, int64(1), pool.Dropped())

	close(release)
	pool.Stop()
}

func TestPool_PanickingJobDoesNotKillWorker(t *testing.T) {
	pool := NewPool(zap.NewNop(), 1, 4)
	pool.Start(context.Background())
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	pool.Submit(func(ctx context.Context) { panic("boom") })
	pool.Submit(func(ctx context.Context) { wg.Done() })

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
}

func TestPool_GracefulShutdown(t *testing.T) {
	pool := NewPool(zap.NewNop(), 2, 4)
	pool.Start(context.Background())

	pool.Submit(func(ctx context.Context) { time.Sleep(50 * time.Millisecond) })

	done := make(chan struct{})
	go func() {
		pool.Stop()
		pool.Stop() // second call is a no-op
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop gracefully within 5 seconds")
	}

	assert.False(t, pool.Submit(func(ctx context.Context) {}), "submit after stop should be rejected")
}
