package u

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
)

func EncodeJpeg(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func EncodePng(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
