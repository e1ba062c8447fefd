package i

import (
	"image"

	"github.com/DeveloperOl/lespas/types"
)

type Decoder interface {
	supportedContentTypes() []string
	supportsAnimation() bool
	matches(img []byte, contentType string) bool
	GetOriginDimensions(b []byte, contentType string) (int, int, error)
	Decode(b []byte, contentType string) (image.Image, error)
}

// AnimatedDecoder is implemented by decoders that can return every frame.
// A single-frame input comes back as a still artifact.
type AnimatedDecoder interface {
	DecodeAnimation(b []byte, contentType string) (*types.Artifact, error)
}

var decoders = make([]Decoder, 0)

func GetDecoder(img []byte, contentType string, needsAnimation bool) Decoder {
	for _, d := range decoders {
		if needsAnimation && !d.supportsAnimation() {
			continue
		}
		if d.matches(img, contentType) {
			return d
		}
	}
	if needsAnimation {
		// try again, this time without animation
		return GetDecoder(img, contentType, false)
	}
	return nil
}

func GetSupportedContentTypes() []string {
	a := make([]string, 0)
	for _, d := range decoders {
		a = append(a, d.supportedContentTypes()...)
	}
	return a
}

func GetSupportedAnimationTypes() []string {
	a := make([]string, 0)
	for _, d := range decoders {
		if !d.supportsAnimation() {
			continue
		}
		a = append(a, d.supportedContentTypes()...)
	}
	return a
}

// delayHundredths converts a frame delay fraction in seconds to 100ths.
func delayHundredths(numerator uint16, denominator uint16) int {
	if denominator == 0 {
		denominator = 100
	}
	return int(numerator) * 100 / int(denominator)
}
