package internal_cache

import (
	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/types"
	"github.com/prometheus/client_golang/prometheus"
)

// NoopCache is used when the cache is configured with no capacity.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) Get(key string) (*types.Artifact, bool) {
	metrics.CacheMisses.With(prometheus.Labels{"cache": metricsLabel}).Inc()
	return nil, false
}

func (n *NoopCache) Put(key string, artifact *types.Artifact) {
	// do nothing
}

func (n *NoopCache) RemoveByPrefix(prefix string) int {
	return 0
}

func (n *NoopCache) Size() int64 {
	return 0
}

func (n *NoopCache) Len() int {
	return 0
}

func (n *NoopCache) Capacity() int64 {
	return 0
}

func (n *NoopCache) Reset() {
	// do nothing
}

func (n *NoopCache) Close() {
	// do nothing
}
