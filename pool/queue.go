package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/DeveloperOl/lespas/common"
	"github.com/Jeffail/tunny"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Queue runs scheduled jobs on a fixed number of workers. Jobs beyond the
// worker count wait in line; a job whose context ends while it waits is
// dropped without running.
type Queue struct {
	pool   *tunny.Pool
	name   string
	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewQueue(workers int, name string) (*Queue, error) {
	if workers <= 0 {
		return nil, errors.Errorf("queue %s needs at least one worker, got %d", name, workers)
	}
	return &Queue{pool: tunny.NewCallback(workers), name: name}, nil
}

// Schedule queues task and returns immediately.
func (q *Queue) Schedule(ctx context.Context, task func()) error {
	if q.closed.Load() {
		return common.ErrShutdown
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		_, err := q.pool.ProcessCtx(ctx, func() {
			if ctx.Err() != nil {
				return
			}
			q.run(task)
		})
		if err != nil && ctx.Err() == nil {
			logrus.Warnf("Job dropped from queue %s: %s", q.name, err.Error())
		}
	}()
	return nil
}

func (q *Queue) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Panic from internal queue %s", q.name)
			logrus.Error(r)
			//goland:noinspection GoTypeAssertionOnErrors
			if e, ok := r.(error); ok {
				sentry.CaptureException(e)
			} else {
				sentry.CaptureMessage(fmt.Sprintf("panic in queue %s: %v", q.name, r))
			}
		}
	}()
	task()
}

func (q *Queue) Size() int {
	return q.pool.GetSize()
}

func (q *Queue) Resize(workers int) {
	if workers <= 0 || q.closed.Load() {
		return
	}
	q.pool.SetSize(workers)
}

// Drain stops accepting jobs, waits for queued and running ones, then stops
// the workers. Callers cancel outstanding work first if they do not want it
// to run.
func (q *Queue) Drain() {
	if !q.closed.CompareAndSwap(false, true) {
		return
	}
	q.wg.Wait()
	q.pool.Close()
}
