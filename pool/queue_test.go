package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DeveloperOl/lespas/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	q, err := NewQueue(3, "test")
	require.NoError(t, err)
	defer q.Drain()

	var ran atomic.Int32
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		assert.NoError(t, q.Schedule(context.Background(), func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(10), ran.Load())
}

func TestQueueBoundsConcurrency(t *testing.T) {
	q, err := NewQueue(2, "test")
	require.NoError(t, err)
	defer q.Drain()

	var running, peak atomic.Int32
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		_ = q.Schedule(context.Background(), func() {
			defer wg.Done()
			now := running.Add(1)
			for {
				p := peak.Load()
				if now <= p || peak.CompareAndSwap(p, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCancelledWaitingJobNeverRuns(t *testing.T) {
	q, err := NewQueue(1, "test")
	require.NoError(t, err)
	defer q.Drain()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = q.Schedule(context.Background(), func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	_ = q.Schedule(ctx, func() {
		ran.Store(true)
	})
	cancel()
	close(release)

	// a job scheduled afterwards still runs
	done := make(chan struct{})
	_ = q.Schedule(context.Background(), func() {
		close(done)
	})
	<-done
	assert.False(t, ran.Load())
}

func TestPanicsAreContained(t *testing.T) {
	q, err := NewQueue(1, "test")
	require.NoError(t, err)
	defer q.Drain()

	_ = q.Schedule(context.Background(), func() {
		panic("boom")
	})
	done := make(chan struct{})
	_ = q.Schedule(context.Background(), func() {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue stopped working after a panic")
	}
}

func TestDrainRejectsNewJobs(t *testing.T) {
	q, err := NewQueue(1, "test")
	require.NoError(t, err)
	q.Drain()
	q.Drain()

	assert.ErrorIs(t, q.Schedule(context.Background(), func() {}), common.ErrShutdown)
}

func TestResize(t *testing.T) {
	q, err := NewQueue(1, "test")
	require.NoError(t, err)
	defer q.Drain()

	q.Resize(4)
	assert.Equal(t, 4, q.Size())
	q.Resize(0)
	assert.Equal(t, 4, q.Size())
}

func TestNeedsWorkers(t *testing.T) {
	_, err := NewQueue(0, "test")
	assert.Error(t, err)
}
