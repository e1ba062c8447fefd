package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

var ErrNotFound = errors.New("media not found")
var ErrCancelled = fmt.Errorf("fetch cancelled: %w", context.Canceled)
var ErrRetryExhausted = errors.New("retries exhausted")
var ErrNoContentLength = errors.New("remote object did not declare a content length")
var ErrTimeout = errors.New("network timeout")
var ErrShutdown = errors.New("media layer is shut down")
var ErrUnsupported = errors.New("unsupported media type")
var ErrMediaTooLarge = errors.New("media too large")

// ProtocolError is a non-success HTTP status from the content server. It is
// never retried.
type ProtocolError struct {
	Url        string
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.Url)
}

// NotFound reports whether the status means the object is absent, which
// moves the pipeline on to its next source rather than failing.
func (e *ProtocolError) NotFound() bool {
	return e.StatusCode == 404 || e.StatusCode == 410
}

type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding %s: %s", e.ContentType, e.Err.Error())
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func IsCancelled(err error) bool {
	return err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled))
}

// IsTransient reports timeout-class errors and dropped connections, the only
// errors the byte range reader retries.
func IsTransient(err error) bool {
	if err == nil || IsCancelled(err) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.NotFound()
}
