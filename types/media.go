package types

import (
	"strings"
)

type Origin int

const (
	// OriginAlbum items live in a local album; they may or may not have been
	// uploaded yet.
	OriginAlbum Origin = iota
	// OriginCameraRoll items are indexed by the platform media store and are
	// read through it rather than through local storage.
	OriginCameraRoll
	// OriginRemoteAlbum items belong to a live remote (shared) album and only
	// exist on the server.
	OriginRemoteAlbum
)

func (o Origin) String() string {
	switch o {
	case OriginCameraRoll:
		return "camera_roll"
	case OriginRemoteAlbum:
		return "remote_album"
	default:
		return "album"
	}
}

func ParseOrigin(name string) (Origin, bool) {
	switch name {
	case "album", "":
		return OriginAlbum, true
	case "camera_roll":
		return OriginCameraRoll, true
	case "remote_album":
		return OriginRemoteAlbum, true
	}
	return OriginAlbum, false
}

// MediaReference identifies one media item. It is never mutated while a fetch
// is running; the pipeline copies it when it needs to adjust a field.
type MediaReference struct {
	Id          string
	Name        string
	RemotePath  string // empty when the item is not on the server
	LocalPath   string
	Width       int
	Height      int
	Orientation int // clockwise degrees: 0, 90, 180 or 270
	MimeType    string
	Origin      Origin

	NotYetUploaded bool
	NeedsRefresh   bool
}

// IsRemote reports whether the server holds a settled copy of the item.
func (r MediaReference) IsRemote() bool {
	return r.RemotePath != "" && !r.NotYetUploaded
}

func (r MediaReference) IsVideo() bool {
	return strings.HasPrefix(r.MimeType, "video")
}

func (r MediaReference) IsCameraRoll() bool {
	return r.Origin == OriginCameraRoll
}

// ObjectPath is the path of the item below the user's DAV resource root.
func (r MediaReference) ObjectPath() string {
	return strings.TrimSuffix(r.RemotePath, "/") + "/" + r.Name
}
