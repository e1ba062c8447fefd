package internal_cache

import (
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/sirupsen/logrus"
)

// New picks the cache implementation for the configured capacity.
func New(c config.CacheConfig) ArtifactStore {
	capacity := c.CacheCapacity()
	if capacity <= 0 {
		logrus.Warn("Artifact cache has no capacity - setting up a dummy instance")
		return NewNoopCache()
	}
	logrus.Info("Setting up in-memory artifact cache")
	return NewArtifactCache(capacity)
}
