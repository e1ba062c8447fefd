package thumbnailing

import (
	"image"
	"io"
	"strings"

	"github.com/DeveloperOl/lespas/common"
	"github.com/DeveloperOl/lespas/thumbnailing/i"
	"github.com/DeveloperOl/lespas/thumbnailing/u"
	"github.com/DeveloperOl/lespas/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ryanuber/go-glob"
)

// Codec decodes media bytes into images. Every decode refuses to produce
// more than maxPixels pixels after sampling.
type Codec struct {
	maxPixels int64
}

func NewCodec(maxPixels int64) *Codec {
	return &Codec{maxPixels: maxPixels}
}

func IsSupported(contentType string) bool {
	for _, c := range i.GetSupportedContentTypes() {
		if c == contentType {
			return true
		}
	}
	return false
}

// NormalizeContentType maps the app specific animated markers to their real
// formats and sniffs the content when the declared type says nothing useful.
func NormalizeContentType(b []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	switch declared {
	case "image/agif":
		return "image/gif"
	case "image/awebp":
		return "image/webp"
	case "image/heic":
		return "image/heif"
	case "", "application/octet-stream", "binary/octet-stream":
		detected := mimetype.Detect(b)
		if detected.Is("image/vnd.mozilla.apng") {
			return "image/apng"
		}
		return detected.String()
	}
	if !IsSupported(declared) && strings.HasPrefix(declared, "image/") {
		return mimetype.Detect(b).String()
	}
	return declared
}

// IsAnimatedType reports whether contentType matches any of the patterns,
// which may contain * wildcards.
func IsAnimatedType(contentType string, patterns []string) bool {
	for _, p := range patterns {
		if glob.Glob(p, contentType) {
			return true
		}
	}
	return false
}

// Probe returns the normalised content type and the full-size dimensions.
func (c *Codec) Probe(b []byte, declared string) (string, int, int, error) {
	contentType := NormalizeContentType(b, declared)
	decoder := i.GetDecoder(b, contentType, false)
	if decoder == nil {
		return contentType, 0, 0, common.ErrUnsupported
	}
	w, h, err := decoder.GetOriginDimensions(b, contentType)
	if err != nil {
		return contentType, 0, 0, &common.DecodeError{ContentType: contentType, Err: err}
	}
	return contentType, w, h, nil
}

// DecodeSampled decodes a still image, shrunk by sample in both dimensions.
func (c *Codec) DecodeSampled(r io.Reader, declared string, sample int) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, _, err := c.decodeStill(b, declared, sample)
	if err != nil {
		return nil, err
	}
	return u.Subsample(img, sample), nil
}

// DecodeRegion decodes only region of the image, in full-size coordinates,
// shrunk by sample. The region is clipped to the image.
func (c *Codec) DecodeRegion(r io.Reader, declared string, region image.Rectangle, sample int) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, contentType, err := c.decodeStill(b, declared, sample)
	if err != nil {
		return nil, err
	}
	full := image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	region = region.Canon().Intersect(full)
	if region.Empty() {
		return nil, &common.DecodeError{ContentType: contentType, Err: common.ErrNotFound}
	}
	return u.Subsample(u.CropRegion(img, region, 1), sample), nil
}

// DecodeAnimated returns every frame when the format supports animation,
// otherwise a still artifact.
func (c *Codec) DecodeAnimated(r io.Reader, declared string) (*types.Artifact, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	contentType, w, h, err := c.Probe(b, declared)
	if err != nil {
		return nil, err
	}
	if err = c.checkPixels(w, h, 1, contentType); err != nil {
		return nil, err
	}

	decoder := i.GetDecoder(b, contentType, true)
	if animated, ok := decoder.(i.AnimatedDecoder); ok {
		artifact, err := animated.DecodeAnimation(b, contentType)
		if err != nil {
			return nil, &common.DecodeError{ContentType: contentType, Err: err}
		}
		return artifact, nil
	}

	img, err := decoder.Decode(b, contentType)
	if err != nil {
		return nil, &common.DecodeError{ContentType: contentType, Err: err}
	}
	return types.NewStill(img, contentType), nil
}

// Orientation reads the clockwise rotation from EXIF metadata.
func (c *Codec) Orientation(r io.Reader) (int, error) {
	return u.GetExifOrientation(r)
}

func (c *Codec) decodeStill(b []byte, declared string, sample int) (image.Image, string, error) {
	contentType, w, h, err := c.Probe(b, declared)
	if err != nil {
		return nil, contentType, err
	}
	if err = c.checkPixels(w, h, sample, contentType); err != nil {
		return nil, contentType, err
	}
	decoder := i.GetDecoder(b, contentType, false)
	img, err := decoder.Decode(b, contentType)
	if err != nil {
		return nil, contentType, &common.DecodeError{ContentType: contentType, Err: err}
	}
	return img, contentType, nil
}

func (c *Codec) checkPixels(w int, h int, sample int, contentType string) error {
	if c.maxPixels <= 0 {
		return nil
	}
	sw, sh := u.SampledDimensions(w, h, sample)
	if int64(sw)*int64(sh) > c.maxPixels {
		return &common.DecodeError{ContentType: contentType, Err: common.ErrMediaTooLarge}
	}
	return nil
}
