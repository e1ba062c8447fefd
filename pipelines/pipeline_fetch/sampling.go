package pipeline_fetch

import (
	"image"

	"github.com/DeveloperOl/lespas/types"
)

const (
	thumbnailThreshold = 1440
	fullPixelCeiling   = 25000000
)

// thumbnailSample shrinks grid and map thumbnails decoded from the full
// object.
func thumbnailSample(ref types.MediaReference) int {
	if ref.Width < thumbnailThreshold || ref.Height < thumbnailThreshold {
		return 2
	}
	return 8
}

// previewSample applies to the server rendered preview, which is already
// small.
func previewSample(kind types.ArtifactKind) int {
	if kind.Type == types.KindGrid {
		return 2
	}
	return 1
}

// fullSample keeps a full resolution decode near the pixel ceiling. Media
// without dimensions yet (early camera backups) get a fixed factor.
func fullSample(ref types.MediaReference) int {
	if ref.Width == 0 {
		return 2
	}
	sample := (ref.Width * ref.Height) / fullPixelCeiling
	if sample > 0 {
		return sample * 2
	}
	return 1
}

func coverSample(width int, kind types.ArtifactKind) int {
	sample := 4
	if width < thumbnailThreshold {
		sample = 1
	} else if width <= 3000 {
		sample = 2
	}
	if kind.Type == types.KindSmallCover {
		sample *= 2
	}
	return sample
}

// coverGeometry is the upright width and height a cover crop is computed
// against, plus the rotation to apply afterwards.
func coverGeometry(ref types.MediaReference) (int, int, int) {
	width, height, orientation := ref.Width, ref.Height, ref.Orientation
	if ref.IsCameraRoll() {
		if orientation == 90 || orientation == 270 {
			width, height = height, width
		}
	} else if !ref.IsRemote() {
		// not settled on the server yet, the baseline was picked on the
		// unrotated file
		orientation = 0
	}
	return width, height, orientation
}

// coverRegion is the 21:9 band starting at baseline, in stored (unrotated)
// image coordinates.
func coverRegion(width int, height int, orientation int, baseline int) image.Rectangle {
	band := width * 9 / 21
	switch orientation {
	case 0:
		return image.Rect(0, baseline, width-1, min(baseline+band, height-1))
	case 90:
		return image.Rect(baseline, 0, min(baseline+band, height-1), width-1)
	case 180:
		top := height - baseline
		return image.Rect(0, max(top-band, 0), width-1, top)
	default:
		top := height - baseline
		return image.Rect(max(top-band, 0), 0, top, width-1)
	}
}
