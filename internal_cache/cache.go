package internal_cache

import (
	"github.com/DeveloperOl/lespas/types"
)

// ArtifactStore keeps decoded artifacts in memory, keyed by types.CacheKey.
type ArtifactStore interface {
	Get(key string) (*types.Artifact, bool)
	Put(key string, artifact *types.Artifact)
	RemoveByPrefix(prefix string) int
	Size() int64
	Len() int
	Capacity() int64
	Reset()
	Close()
}
