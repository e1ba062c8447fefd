package u

import (
	"image"

	"github.com/disintegration/imaging"
)

// Subsample shrinks img by an integer factor in both dimensions, like a
// sampled decode would.
func Subsample(img image.Image, sample int) image.Image {
	if sample <= 1 {
		return img
	}
	b := img.Bounds()
	w := b.Dx() / sample
	h := b.Dy() / sample
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return imaging.Resize(img, w, h, imaging.Box)
}

// SampledDimensions is the size a sampled decode of a w x h image produces.
func SampledDimensions(w int, h int, sample int) (int, int) {
	if sample <= 1 {
		return w, h
	}
	return max(w/sample, 1), max(h/sample, 1)
}

// Rotate turns img clockwise by degrees, which must be a multiple of 90.
func Rotate(img image.Image, degrees int) image.Image {
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}

// CropRegion cuts region, given in full-size source coordinates, out of an
// image that was decoded with the given sample factor.
func CropRegion(img image.Image, region image.Rectangle, sample int) image.Image {
	if sample < 1 {
		sample = 1
	}
	scaled := image.Rect(region.Min.X/sample, region.Min.Y/sample, region.Max.X/sample, region.Max.Y/sample)
	if scaled.Dx() < 1 {
		scaled.Max.X = scaled.Min.X + 1
	}
	if scaled.Dy() < 1 {
		scaled.Max.Y = scaled.Min.Y + 1
	}
	origin := img.Bounds().Min
	return imaging.Crop(img, scaled.Add(origin))
}
