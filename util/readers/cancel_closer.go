package readers

import (
	"io"
	"sync"
)

// CancelCloser releases the request backing a response body when the body is
// closed. Close may be called more than once.
type CancelCloser struct {
	io.ReadCloser
	cancel func()
	once   sync.Once
	err    error
}

func NewCancelCloser(r io.ReadCloser, cancel func()) *CancelCloser {
	return &CancelCloser{
		ReadCloser: r,
		cancel:     cancel,
	}
}

func (c *CancelCloser) Close() error {
	c.once.Do(func() {
		c.err = c.ReadCloser.Close()
		c.cancel()
	})
	return c.err
}
