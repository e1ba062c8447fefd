package pipeline_fetch

import (
	"github.com/DeveloperOl/lespas/types"
)

type Status int

const (
	StatusOk Status = iota
	StatusSkip
	StatusFail
)

// Result is what one tier produced. Skip means the tier does not apply to
// the item, Fail that it applied and went wrong.
type Result struct {
	Status   Status
	Artifact *types.Artifact
	Err      error
}

func ok(a *types.Artifact) Result {
	if a == nil {
		return skip()
	}
	return Result{Status: StatusOk, Artifact: a}
}

func skip() Result {
	return Result{Status: StatusSkip}
}

func fail(err error) Result {
	return Result{Status: StatusFail, Err: err}
}

const (
	tierCache          = "cache"
	tierRemoteThumb    = "remote_thumbnail"
	tierLocalFile      = "local_file"
	tierPlatform       = "platform"
	tierRemoteObject   = "remote_object"
	tierVideoDisk      = "video_disk_cache"
	tierVideoExtract   = "video_extract"
	tierEmptyRollCover = "empty_roll_cover"
)

type tier struct {
	name string
	fn   func(f *fetch) Result

	// a forced refresh is settled once this tier succeeds
	clearsRefresh bool
}

func (p *Pipeline) tiersFor(f *fetch) []tier {
	cached := tier{name: tierCache, fn: p.fromCache}

	switch f.kind.Type {
	case types.KindGrid, types.KindInMap:
		remote := tier{name: tierRemoteThumb, fn: p.remoteThumbnail, clearsRefresh: true}
		local := tier{name: tierLocalFile, fn: p.localThumbnail}
		switch {
		case f.ref.IsRemote():
			return []tier{cached, remote}
		case f.ref.IsCameraRoll():
			return []tier{cached, {name: tierPlatform, fn: p.platformThumbnail}, local}
		default:
			// local copies are authored upright, the server copy is only a
			// fallback when the file has gone missing and never settles a
			// forced refresh
			return []tier{cached, local, {name: tierRemoteThumb, fn: p.remoteThumbnailFallback}}
		}
	case types.KindFull:
		return []tier{
			{name: tierLocalFile, fn: p.localFull},
			{name: tierRemoteObject, fn: p.remoteFull},
		}
	case types.KindCover, types.KindSmallCover:
		return []tier{
			cached,
			{name: tierLocalFile, fn: p.localCover},
			{name: tierRemoteObject, fn: p.remoteCover},
		}
	case types.KindVideo:
		if f.ref.IsCameraRoll() {
			return []tier{cached, {name: tierPlatform, fn: p.platformThumbnail}}
		}
		return []tier{
			cached,
			{name: tierVideoDisk, fn: p.videoFromDisk},
			{name: tierVideoExtract, fn: p.videoFromFrames},
		}
	case types.KindEmptyRollCover:
		return []tier{cached, {name: tierEmptyRollCover, fn: p.emptyRollCover}}
	}
	return nil
}
