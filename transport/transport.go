package transport

import (
	"io"
	"net/http"
)

type CacheDirective int

const (
	CacheDefault CacheDirective = iota
	// CacheForceNetwork bypasses any intermediate cache, used when the server
	// copy is known to have changed.
	CacheForceNetwork
)

type Response struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64 // -1 when the server did not declare one
	Body          io.ReadCloser
}

// Call is a single cancellable request. Execute may be called once. Cancel may
// be called at any time from any goroutine, before or during Execute and
// while the body is being read; it is idempotent.
type Call interface {
	Execute() (*Response, error)
	Cancel()
	IsCancelled() bool
}

// RangeTransport issues requests against the content server.
type RangeTransport interface {
	Get(url string, cacheable bool, directive CacheDirective) Call
	GetRange(url string, start int64) Call
}

// CallRegistry receives every call opened on behalf of a task, so the task
// can abort it when it is cancelled.
type CallRegistry interface {
	RegisterCall(call Call)
}

type noopRegistry struct{}

func (noopRegistry) RegisterCall(call Call) {}

// NoopRegistry is used when a caller does not track calls.
var NoopRegistry CallRegistry = noopRegistry{}
