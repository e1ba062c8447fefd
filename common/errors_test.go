package common

import (
	"context"
	"os"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(ErrCancelled))
	assert.True(t, IsCancelled(context.Canceled))
	assert.True(t, IsCancelled(errors.Wrap(ErrCancelled, "reading tail")))
	assert.False(t, IsCancelled(nil))
	assert.False(t, IsCancelled(ErrTimeout))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrTimeout))
	assert.True(t, IsTransient(errors.Wrap(syscall.ECONNRESET, "read")))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(os.ErrDeadlineExceeded))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(ErrCancelled))
	assert.False(t, IsTransient(&ProtocolError{StatusCode: 503}))
	assert.False(t, IsTransient(ErrNotFound))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(os.ErrNotExist))
	assert.True(t, IsNotFound(errors.Wrap(&ProtocolError{StatusCode: 404}, "preview")))
	assert.True(t, IsNotFound(&ProtocolError{StatusCode: 410}))
	assert.False(t, IsNotFound(&ProtocolError{StatusCode: 403}))
	assert.False(t, IsNotFound(nil))
}

func TestDecodeErrorUnwraps(t *testing.T) {
	err := &DecodeError{ContentType: "image/heic", Err: ErrUnsupported}
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "image/heic")
}
