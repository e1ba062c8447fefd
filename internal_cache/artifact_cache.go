package internal_cache

import (
	"math"
	"strings"
	"sync"

	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/types"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const metricsLabel = "artifacts"

type entry struct {
	artifact *types.Artifact
	size     int64
}

// ArtifactCache is an LRU bounded by the summed ByteSize of its artifacts
// rather than by item count. Every operation, Get included, takes the same
// lock because a hit reorders the recency list.
type ArtifactCache struct {
	lock     *sync.Mutex
	lru      *simplelru.LRU[string, entry]
	capacity int64
	size     int64

	// evictReason labels the next eviction callback
	evictReason string

	stopMetrics func()
}

func NewArtifactCache(capacityBytes int64) *ArtifactCache {
	c := &ArtifactCache{
		lock:        &sync.Mutex{},
		capacity:    capacityBytes,
		evictReason: "capacity",
	}
	// The item count never limits the cache, byte accounting does.
	lru, err := simplelru.NewLRU[string, entry](math.MaxInt32, c.onEvicted)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	c.lru = lru

	c.stopMetrics = metrics.OnBeforeMetricsRequested(func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		metrics.CacheNumBytes.With(prometheus.Labels{"cache": metricsLabel}).Set(float64(c.size))
		metrics.CacheNumItems.With(prometheus.Labels{"cache": metricsLabel}).Set(float64(c.lru.Len()))
	})

	logrus.Infof("Artifact cache capacity is %s", humanize.Bytes(uint64(max(capacityBytes, 0))))
	return c
}

func (c *ArtifactCache) onEvicted(key string, e entry) {
	c.size -= e.size
	metrics.CacheEvictions.With(prometheus.Labels{"cache": metricsLabel, "reason": c.evictReason}).Inc()
}

func (c *ArtifactCache) Get(key string) (*types.Artifact, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		metrics.CacheMisses.With(prometheus.Labels{"cache": metricsLabel}).Inc()
		return nil, false
	}
	metrics.CacheHits.With(prometheus.Labels{"cache": metricsLabel}).Inc()
	return e.artifact, true
}

// Put stores artifact under key as the most recently used entry, then evicts
// least recently used entries until the cache fits its capacity again. An
// artifact that alone exceeds the capacity is not stored.
func (c *ArtifactCache) Put(key string, artifact *types.Artifact) {
	if artifact == nil {
		return
	}
	size := artifact.ByteSize()

	c.lock.Lock()
	defer c.lock.Unlock()

	if size > c.capacity {
		logrus.Debugf("Not caching %s: %s exceeds the cache capacity", key, humanize.Bytes(uint64(size)))
		c.removeLocked(key, "replaced")
		return
	}

	if old, ok := c.lru.Peek(key); ok {
		// Add on an existing key does not fire the eviction callback
		c.size -= old.size
	}
	c.lru.Add(key, entry{artifact: artifact, size: size})
	c.size += size

	c.evictReason = "capacity"
	for c.size > c.capacity {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// RemoveByPrefix drops every entry whose key starts with prefix and returns
// how many were removed.
func (c *ArtifactCache) RemoveByPrefix(prefix string) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key, "invalidated")
			removed++
		}
	}
	return removed
}

func (c *ArtifactCache) removeLocked(key string, reason string) {
	c.evictReason = reason
	c.lru.Remove(key)
	c.evictReason = "capacity"
}

func (c *ArtifactCache) Size() int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.size
}

func (c *ArtifactCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lru.Len()
}

func (c *ArtifactCache) Capacity() int64 {
	return c.capacity
}

func (c *ArtifactCache) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.evictReason = "reset"
	c.lru.Purge()
	c.evictReason = "capacity"
	c.size = 0
}

// Close stops the cache reporting its gauges. The entries stay usable.
func (c *ArtifactCache) Close() {
	c.lock.Lock()
	stop := c.stopMetrics
	c.stopMetrics = nil
	c.lock.Unlock()

	if stop != nil {
		stop()
	}
}
