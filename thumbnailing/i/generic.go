package i

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// genericDecoder covers the still formats imaging reads directly.
type genericDecoder struct {
}

func (d genericDecoder) supportedContentTypes() []string {
	return []string{"image/jpeg", "image/jpg", "image/png", "image/bmp", "image/x-ms-bmp", "image/tiff"}
}

func (d genericDecoder) supportsAnimation() bool {
	return false
}

func (d genericDecoder) matches(img []byte, contentType string) bool {
	for _, c := range d.supportedContentTypes() {
		if c == contentType {
			return true
		}
	}
	return false
}

func (d genericDecoder) GetOriginDimensions(b []byte, contentType string) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, errors.Wrap(err, contentType+": error reading dimensions")
	}
	return cfg.Width, cfg.Height, nil
}

func (d genericDecoder) Decode(b []byte, contentType string) (image.Image, error) {
	// orientation is applied by the caller from the stored media metadata
	img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(false))
	if err != nil {
		return nil, errors.Wrap(err, contentType+": error decoding image")
	}
	return img, nil
}

func init() {
	decoders = append(decoders, genericDecoder{})
}
