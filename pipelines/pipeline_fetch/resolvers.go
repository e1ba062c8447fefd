package pipeline_fetch

import (
	"bytes"
	"image"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/datastores"
	"github.com/DeveloperOl/lespas/ranged"
	"github.com/DeveloperOl/lespas/thumbnailing"
	"github.com/DeveloperOl/lespas/thumbnailing/u"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/DeveloperOl/lespas/types"
)

func (p *Pipeline) fromCache(f *fetch) Result {
	if f.forceRefresh {
		return skip()
	}
	a, found := p.deps.Cache.Get(f.key)
	if !found {
		return skip()
	}
	return ok(a)
}

// remoteThumbnail prefers the server rendered preview, which the server
// already turned upright, and falls back to shrinking the full object.
func (p *Pipeline) remoteThumbnail(f *fetch) Result {
	if f.ref.RemotePath == "" {
		return skip()
	}

	img, err := p.preview(f)
	if err == nil {
		return ok(types.NewStill(img, "image/jpeg"))
	}
	if common.IsCancelled(err) {
		return fail(err)
	}
	f.ctx.Log.Debug("Preview unavailable, using the full object: ", err)

	b, err := p.readObject(f)
	if err != nil {
		return sourceResult(err)
	}
	img, err = p.deps.Codec.DecodeSampled(bytes.NewReader(b), f.ref.MimeType, thumbnailSample(f.ref))
	if err != nil {
		return fail(err)
	}
	if f.ctx.Cancelled() {
		return fail(common.ErrCancelled)
	}
	return ok(types.NewStill(u.Rotate(img, f.ref.Orientation), f.ref.MimeType))
}

// remoteThumbnailFallback is remoteThumbnail for items whose own copy is
// local. The server is asked the ordinary way even on a forced refresh.
func (p *Pipeline) remoteThumbnailFallback(f *fetch) Result {
	plain := *f
	plain.forceRefresh = false
	return p.remoteThumbnail(&plain)
}

func (p *Pipeline) preview(f *fetch) (image.Image, error) {
	url := p.deps.Endpoints.PreviewUrl(f.ref)
	errs := p.deps.PreviewErrors
	if errs != nil && !f.forceRefresh {
		if err := errs.Recent(url); err != nil {
			return nil, err
		}
	}

	directive := transport.CacheDefault
	if f.forceRefresh {
		directive = transport.CacheForceNetwork
	}
	b, err := p.readRemote(f, url, directive)
	if err == nil {
		var img image.Image
		img, err = p.deps.Codec.DecodeSampled(bytes.NewReader(b), "", previewSample(f.kind))
		if err == nil {
			return img, nil
		}
	}
	if errs != nil && !common.IsCancelled(err) {
		errs.Remember(url, err)
	}
	return nil, err
}

// localThumbnail decodes the device copy. Album files are stored upright,
// camera roll files carry their orientation separately.
func (p *Pipeline) localThumbnail(f *fetch) Result {
	b, err := p.readLocal(f)
	if err != nil {
		return sourceResult(err)
	}
	img, err := p.deps.Codec.DecodeSampled(bytes.NewReader(b), f.ref.MimeType, thumbnailSample(f.ref))
	if err != nil {
		return fail(err)
	}
	if f.ref.IsCameraRoll() {
		img = u.Rotate(img, f.ref.Orientation)
	}
	return ok(types.NewStill(img, f.ref.MimeType))
}

func (p *Pipeline) platformThumbnail(f *fetch) Result {
	if p.deps.Platform == nil {
		return skip()
	}
	img, err := p.deps.Platform.Thumbnail(f.ctx, f.ref, f.kind)
	if err != nil {
		return sourceResult(err)
	}
	if img == nil {
		return skip()
	}
	return ok(types.NewStill(img, f.ref.MimeType))
}

func (p *Pipeline) localFull(f *fetch) Result {
	b, err := p.readLocal(f)
	if err != nil {
		return sourceResult(err)
	}
	return p.decodeFull(f, b, false)
}

func (p *Pipeline) remoteFull(f *fetch) Result {
	b, err := p.readObject(f)
	if err != nil {
		return sourceResult(err)
	}
	return p.decodeFull(f, b, true)
}

func (p *Pipeline) isAnimated(ref types.MediaReference, cfgAnimated []string, cfgCameraRoll []string) bool {
	if thumbnailing.IsAnimatedType(ref.MimeType, cfgAnimated) {
		return true
	}
	return ref.IsCameraRoll() && thumbnailing.IsAnimatedType(ref.MimeType, cfgCameraRoll)
}

func (p *Pipeline) decodeFull(f *fetch, b []byte, fromServer bool) Result {
	ref := f.ref
	fetchConfig := f.ctx.Config.Fetch

	if p.isAnimated(ref, fetchConfig.AnimatedTypes, fetchConfig.CameraRollAnimated) {
		a, err := p.deps.Codec.DecodeAnimated(bytes.NewReader(b), ref.MimeType)
		if err == nil {
			if fetchConfig.AutoReplayAnimations {
				a.LoopCount = 0
			}
			return ok(a)
		}
		f.ctx.Log.Debug("Animated decode failed, falling back to a still: ", err)
	}

	if fromServer && ref.IsRemote() && ref.Width == 0 {
		// early backups reach the server before their metadata does
		if degrees, err := p.deps.Codec.Orientation(bytes.NewReader(b)); err == nil {
			ref.Orientation = degrees
		}
	}

	img, err := p.deps.Codec.DecodeSampled(bytes.NewReader(b), ref.MimeType, fullSample(ref))
	if err != nil {
		return fail(err)
	}
	if f.ctx.Cancelled() {
		return fail(common.ErrCancelled)
	}
	rotate := ref.IsCameraRoll() || (fromServer && ref.IsRemote())
	if rotate && ref.Orientation != 0 {
		img = u.Rotate(img, ref.Orientation)
	}
	return ok(types.NewStill(img, ref.MimeType))
}

func (p *Pipeline) localCover(f *fetch) Result {
	b, err := p.readLocal(f)
	if err != nil {
		return sourceResult(err)
	}
	return p.decodeCover(f, b)
}

func (p *Pipeline) remoteCover(f *fetch) Result {
	b, err := p.readObject(f)
	if err != nil {
		return sourceResult(err)
	}
	return p.decodeCover(f, b)
}

func (p *Pipeline) decodeCover(f *fetch, b []byte) Result {
	width, height, orientation := coverGeometry(f.ref)
	if width <= 0 || height <= 0 {
		_, w, h, err := p.deps.Codec.Probe(b, f.ref.MimeType)
		if err != nil {
			return fail(err)
		}
		width, height = w, h
		if orientation == 90 || orientation == 270 {
			width, height = h, w
		}
	}

	region := coverRegion(width, height, orientation, f.kind.Baseline)
	img, err := p.deps.Codec.DecodeRegion(bytes.NewReader(b), f.ref.MimeType, region, coverSample(width, f.kind))
	if err != nil {
		return fail(err)
	}
	if f.ctx.Cancelled() {
		return fail(common.ErrCancelled)
	}
	return ok(types.NewStill(u.Rotate(img, orientation), f.ref.MimeType))
}

func (p *Pipeline) videoFromDisk(f *fetch) Result {
	img, err := datastores.LoadVideoThumbnail(f.ctx, f.ref)
	if err != nil {
		return sourceResult(err)
	}
	return ok(types.NewStill(img, "image/jpeg"))
}

// videoFromFrames pulls a frame out of the video and keeps it on disk for
// next time. Remote videos are read through a range source so only the
// parts the demuxer asks for are downloaded.
func (p *Pipeline) videoFromFrames(f *fetch) Result {
	if p.deps.Frames == nil {
		return skip()
	}
	if err := p.frameLock.Acquire(f.ctx, 1); err != nil {
		return fail(common.ErrCancelled)
	}
	defer p.frameLock.Release(1)

	var img image.Image
	var err error
	if f.ref.IsRemote() {
		var src *ranged.Source
		src, err = ranged.Open(f.ctx, p.deps.Transport, p.deps.Endpoints.ObjectUrl(f.ref),
			ranged.WithCallRegistry(f.calls),
			ranged.WithLogger(f.ctx.Log))
		if err != nil {
			return sourceResult(err)
		}
		defer src.Close()
		img, err = p.deps.Frames.FromSource(f.ctx, src.ReaderAt(), src.Size())
	} else {
		filePath, lerr := datastores.LocalFile(f.ctx.Config.Storage, f.ref)
		if lerr != nil || !datastores.Exists(filePath) {
			return skip()
		}
		img, err = p.deps.Frames.FromFile(f.ctx, filePath)
	}
	if err != nil {
		if f.ctx.Cancelled() {
			return fail(common.ErrCancelled)
		}
		return fail(err)
	}

	if err = datastores.SaveVideoThumbnail(f.ctx, f.ref, img); err != nil {
		f.ctx.Log.Warn("Error caching video thumbnail: ", err)
	}
	return ok(types.NewStill(img, "image/jpeg"))
}

func (p *Pipeline) emptyRollCover(f *fetch) Result {
	return ok(&types.Artifact{Still: thumbnailing.EmptyRollCover(), ContentType: "image/png"})
}
