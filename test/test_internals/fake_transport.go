package test_internals

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/transport"
)

type FakeRequest struct {
	Url       string
	Start     int64 // -1 for plain GETs
	Cacheable bool
	Directive transport.CacheDirective
}

// FakeTransport serves objects from memory and records every request. Queued
// failures are returned, in order, by the next calls to execute.
type FakeTransport struct {
	mu         sync.Mutex
	objects    map[string][]byte
	noLength   map[string]bool
	held       map[string]bool
	failures   []error
	requests   []FakeRequest
	calls      []*FakeCall
	getCount   atomic.Int32
	rangeCount atomic.Int32
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		objects:  make(map[string][]byte),
		noLength: make(map[string]bool),
		held:     make(map[string]bool),
	}
}

func (t *FakeTransport) Put(url string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.objects[url] = data
}

// OmitLength makes responses for url report no content length.
func (t *FakeTransport) OmitLength(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.noLength[url] = true
}

// Hold makes calls for url block in Execute until they are cancelled.
func (t *FakeTransport) Hold(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held[url] = true
}

func (t *FakeTransport) FailNext(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = append(t.failures, errs...)
}

func (t *FakeTransport) GetCount() int {
	return int(t.getCount.Load())
}

func (t *FakeTransport) RangeCount() int {
	return int(t.rangeCount.Load())
}

func (t *FakeTransport) Requests() []FakeRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]FakeRequest(nil), t.requests...)
}

func (t *FakeTransport) Calls() []*FakeCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*FakeCall(nil), t.calls...)
}

func (t *FakeTransport) Get(url string, cacheable bool, directive transport.CacheDirective) transport.Call {
	return t.newCall(FakeRequest{Url: url, Start: -1, Cacheable: cacheable, Directive: directive})
}

func (t *FakeTransport) GetRange(url string, start int64) transport.Call {
	return t.newCall(FakeRequest{Url: url, Start: start})
}

func (t *FakeTransport) newCall(req FakeRequest) *FakeCall {
	c := &FakeCall{t: t, req: req, cancelled: make(chan struct{})}
	t.mu.Lock()
	t.calls = append(t.calls, c)
	t.mu.Unlock()
	return c
}

type FakeCall struct {
	t         *FakeTransport
	req       FakeRequest
	once      sync.Once
	cancelled chan struct{}
}

func (c *FakeCall) Request() FakeRequest {
	return c.req
}

func (c *FakeCall) Cancel() {
	c.once.Do(func() {
		close(c.cancelled)
	})
}

func (c *FakeCall) IsCancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

func (c *FakeCall) Execute() (*transport.Response, error) {
	t := c.t
	if c.req.Start < 0 {
		t.getCount.Add(1)
	} else {
		t.rangeCount.Add(1)
	}

	t.mu.Lock()
	t.requests = append(t.requests, c.req)
	var failure error
	if len(t.failures) > 0 {
		failure = t.failures[0]
		t.failures = t.failures[1:]
	}
	data, found := t.objects[c.req.Url]
	noLength := t.noLength[c.req.Url]
	held := t.held[c.req.Url]
	t.mu.Unlock()

	if held {
		<-c.cancelled
	}
	if c.IsCancelled() {
		return nil, common.ErrCancelled
	}
	if failure != nil {
		return nil, failure
	}
	if !found {
		return nil, &common.ProtocolError{Url: c.req.Url, StatusCode: 404}
	}

	start := c.req.Start
	status := 200
	if start >= 0 {
		status = 206
	} else {
		start = 0
	}
	if start > int64(len(data)) {
		return nil, &common.ProtocolError{Url: c.req.Url, StatusCode: 416}
	}
	length := int64(len(data)) - start
	if noLength {
		length = -1
	}
	return &transport.Response{
		StatusCode:    status,
		ContentLength: length,
		Body:          &fakeBody{r: bytes.NewReader(data[start:]), call: c},
	}, nil
}

type fakeBody struct {
	r    io.Reader
	call *FakeCall
}

func (b *fakeBody) Read(p []byte) (int, error) {
	if b.call.IsCancelled() {
		return 0, common.ErrCancelled
	}
	return b.r.Read(p)
}

func (b *fakeBody) Close() error {
	return nil
}
