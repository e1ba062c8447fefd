package datastores

import (
	"bytes"
	"image"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/common/config"
	"github.com/DeveloperOl/lespas/common/rcontext"
	"github.com/DeveloperOl/lespas/thumbnailing/u"
	"github.com/DeveloperOl/lespas/types"
	"github.com/disintegration/imaging"
)

const videoThumbnailSuffix = ".thumbnail"

// VideoThumbnailPath is the on-disk frame cache file for a video. Items not
// yet on the server keep it next to their media, remote ones in the cache
// folder.
func VideoThumbnailPath(cfg config.StorageConfig, ref types.MediaReference) (string, error) {
	kind := LocalMediaKind
	if ref.IsRemote() {
		kind = CacheKind
	}
	return Locate(cfg, kind, ref.Id+videoThumbnailSuffix)
}

// LoadVideoThumbnail returns the cached frame, or common.ErrNotFound.
func LoadVideoThumbnail(ctx rcontext.RequestContext, ref types.MediaReference) (image.Image, error) {
	filePath, err := VideoThumbnailPath(ctx.Config.Storage, ref)
	if err != nil {
		return nil, err
	}
	f, err := Open(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, &common.DecodeError{ContentType: "image/jpeg", Err: err}
	}
	return img, nil
}

// SaveVideoThumbnail stores a frame as JPEG for later LoadVideoThumbnail calls.
func SaveVideoThumbnail(ctx rcontext.RequestContext, ref types.MediaReference, img image.Image) error {
	filePath, err := VideoThumbnailPath(ctx.Config.Storage, ref)
	if err != nil {
		return err
	}
	buf := &bytes.Buffer{}
	if err = u.EncodeJpeg(buf, img, ctx.Config.Fetch.ThumbnailJpegQuality); err != nil {
		return err
	}
	return Persist(ctx, filePath, buf)
}

// RemoveCachedVideoThumbnail drops the frame taken from the server copy of a
// video. Frames of items not yet uploaded are left alone.
func RemoveCachedVideoThumbnail(cfg config.StorageConfig, mediaId string) error {
	filePath, err := Locate(cfg, CacheKind, mediaId+videoThumbnailSuffix)
	if err != nil {
		return err
	}
	return Remove(filePath)
}
