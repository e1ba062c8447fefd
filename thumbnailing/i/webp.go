package i

import (
	"bytes"
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/webp"
)

// webpDecoder reads the first frame only, animated WebP included.
type webpDecoder struct {
}

func (d webpDecoder) supportedContentTypes() []string {
	return []string{"image/webp"}
}

func (d webpDecoder) supportsAnimation() bool {
	return false
}

func (d webpDecoder) matches(img []byte, contentType string) bool {
	return contentType == "image/webp"
}

func (d webpDecoder) GetOriginDimensions(b []byte, contentType string) (int, int, error) {
	cfg, err := webp.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, errors.Wrap(err, "webp: error reading dimensions")
	}
	return cfg.Width, cfg.Height, nil
}

func (d webpDecoder) Decode(b []byte, contentType string) (image.Image, error) {
	img, err := webp.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "webp: error decoding image")
	}
	return img, nil
}

func init() {
	decoders = append(decoders, webpDecoder{})
}
