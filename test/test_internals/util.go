package test_internals

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

var evenColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
var oddColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
var altColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}

func colorFor(x int, y int) color.NRGBA {
	c := oddColor
	if (y%2.0) == 0 && (x%2.0) == 0 {
		c = altColor
	} else if (y%2.0) == 0 || (x%2.0) == 0 {
		c = evenColor
	}
	return c
}

func MakeTestImage(width int, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.SetNRGBA(x, y, colorFor(x, y))
		}
	}
	return img
}

// MakeEncodedTestImage renders the test pattern in the given format.
func MakeEncodedTestImage(width int, height int, format imaging.Format) ([]byte, error) {
	b := bytes.NewBuffer(make([]byte, 0))
	err := imaging.Encode(b, MakeTestImage(width, height), format)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MakeStripedImage has a distinct colour in each quadrant, so rotations and
// crops can be checked by sampling corners.
func MakeStripedImage(width int, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.SetNRGBA(x, y, QuadrantColor(x < width/2, y < height/2))
		}
	}
	return img
}

func QuadrantColor(left bool, top bool) color.NRGBA {
	switch {
	case left && top:
		return color.NRGBA{R: 255, A: 255}
	case !left && top:
		return color.NRGBA{G: 255, A: 255}
	case left && !top:
		return color.NRGBA{B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
}

func AssertIsTestImage(t *testing.T, i io.Reader) {
	img, _, err := image.Decode(i)
	assert.NoError(t, err, "Error decoding image")
	width := img.Bounds().Max.X
	height := img.Bounds().Max.Y
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			c := colorFor(x, y)
			if !assert.Equal(t, c, color.NRGBAModel.Convert(img.At(x, y)), fmt.Sprintf("Wrong colour for pixel %d,%d", x, y)) {
				return // don't print thousands of errors
			}
		}
	}
}

// PatternBytes is a deterministic byte sequence where neighbouring offsets
// differ, so misplaced reads show up.
func PatternBytes(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte((i * 31) ^ (i >> 8) ^ (i >> 16))
	}
	return b
}
