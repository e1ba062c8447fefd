package readers

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/DeveloperOl/lespas/common"
)

// NewIdleTimeoutReader fails a Read that blocks for longer than timeout. When
// the timer fires, abort is called to unblock the underlying read, and the
// read reports common.ErrTimeout.
func NewIdleTimeoutReader(r io.ReadCloser, timeout time.Duration, abort func()) io.ReadCloser {
	if timeout <= 0 {
		return r
	}
	return &idleTimeoutReader{r: r, timeout: timeout, abort: abort}
}

type idleTimeoutReader struct {
	r        io.ReadCloser
	timeout  time.Duration
	abort    func()
	timedOut atomic.Bool
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	if r.timedOut.Load() {
		return 0, common.ErrTimeout
	}
	timer := time.AfterFunc(r.timeout, func() {
		r.timedOut.Store(true)
		r.abort()
	})
	n, err := r.r.Read(p)
	timer.Stop()
	if err != nil && r.timedOut.Load() {
		return n, common.ErrTimeout
	}
	return n, err
}

func (r *idleTimeoutReader) Close() error {
	return r.r.Close()
}
