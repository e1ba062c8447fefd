package i

import (
	"bytes"
	"image"

	"github.com/adrium/goheif"
	"github.com/pkg/errors"
)

type heifDecoder struct {
}

func (d heifDecoder) supportedContentTypes() []string {
	return []string{"image/heif", "image/heic"}
}

func (d heifDecoder) supportsAnimation() bool {
	return false
}

func (d heifDecoder) matches(img []byte, contentType string) bool {
	return contentType == "image/heif" || contentType == "image/heic"
}

func (d heifDecoder) GetOriginDimensions(b []byte, contentType string) (int, int, error) {
	cfg, err := goheif.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, errors.Wrap(err, "heif: error reading dimensions")
	}
	return cfg.Width, cfg.Height, nil
}

func (d heifDecoder) Decode(b []byte, contentType string) (image.Image, error) {
	// Use more memory, but prevent crashes
	goheif.SafeEncoding = true

	img, err := goheif.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "heif: error decoding image")
	}
	return img, nil
}

func init() {
	decoders = append(decoders, heifDecoder{})
}
