package datastores

type Kind string

const (
	// LocalMediaKind is the folder holding media files created on this device.
	LocalMediaKind Kind = "local_media"
	// CacheKind holds files derived from remote media, safe to delete.
	CacheKind Kind = "cache"
)
