package types

import (
	"image"
)

// Artifact is a decoded visual result ready for presentation: a still image
// or a looping animation.
type Artifact struct {
	Still       image.Image
	Frames      []image.Image
	Delays      []int // per frame, in 100ths of a second
	LoopCount   int   // 0 loops forever
	ContentType string
	Placeholder bool
}

func NewStill(img image.Image, contentType string) *Artifact {
	return &Artifact{Still: img, ContentType: contentType}
}

func (a *Artifact) Animated() bool {
	return len(a.Frames) > 1
}

// Image returns the still, or the first frame of an animation.
func (a *Artifact) Image() image.Image {
	if a.Still != nil {
		return a.Still
	}
	if len(a.Frames) > 0 {
		return a.Frames[0]
	}
	return nil
}

// ByteSize is the resident cost of the artifact, counted as 4 bytes per
// decoded pixel.
func (a *Artifact) ByteSize() int64 {
	var size int64 = 0
	if a.Still != nil {
		size += pixelBytes(a.Still)
	}
	for _, f := range a.Frames {
		size += pixelBytes(f)
	}
	return size
}

func pixelBytes(img image.Image) int64 {
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}
