package errcache

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrCache remembers recent failures by key so repeated attempts against a
// broken resource can be skipped until the entry expires.
type ErrCache struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewErrCache(expiration time.Duration) *ErrCache {
	return &ErrCache{cache: cache.New(expiration, expiration*2)}
}

func (e *ErrCache) Resize(expiration time.Duration) {
	e.mu.Lock()
	e.cache = cache.NewFrom(expiration, expiration*2, e.cache.Items())
	e.mu.Unlock()
}

// Recent returns the failure remembered for key, if it has not expired.
func (e *ErrCache) Recent(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.cache.Get(key); ok {
		return err.(error)
	}
	return nil
}

func (e *ErrCache) Remember(key string, err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.cache.Set(key, err, cache.DefaultExpiration)
	e.mu.Unlock()
}

// Forget drops every failure whose key starts with prefix.
func (e *ErrCache) Forget(prefix string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k := range e.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			e.cache.Delete(k)
		}
	}
}

func (e *ErrCache) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.ItemCount()
}
