package errcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRememberAndRecent(t *testing.T) {
	c := NewErrCache(time.Minute)
	failure := errors.New("preview unavailable")

	assert.NoError(t, c.Recent("https://example.org/preview?fileId=1"))
	c.Remember("https://example.org/preview?fileId=1", failure)
	assert.Equal(t, failure, c.Recent("https://example.org/preview?fileId=1"))
	assert.NoError(t, c.Recent("https://example.org/preview?fileId=2"))

	c.Remember("ignored", nil)
	assert.Equal(t, 1, c.Len())
}

func TestEntriesExpire(t *testing.T) {
	c := NewErrCache(20 * time.Millisecond)
	c.Remember("a", errors.New("boom"))

	assert.Eventually(t, func() bool {
		return c.Recent("a") == nil
	}, time.Second, 5*time.Millisecond)
}

func TestForgetByPrefix(t *testing.T) {
	c := NewErrCache(time.Minute)
	c.Remember("42/preview", errors.New("a"))
	c.Remember("42/object", errors.New("b"))
	c.Remember("7/preview", errors.New("c"))

	c.Forget("42/")
	assert.NoError(t, c.Recent("42/preview"))
	assert.NoError(t, c.Recent("42/object"))
	assert.Error(t, c.Recent("7/preview"))
}

func TestResizeKeepsEntries(t *testing.T) {
	c := NewErrCache(time.Minute)
	c.Remember("a", errors.New("boom"))
	c.Resize(2 * time.Minute)
	assert.Error(t, c.Recent("a"))
}
