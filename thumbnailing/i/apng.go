package i

import (
	"bytes"
	"image"
	"image/draw"

	"github.com/DeveloperOl/lespas/types"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/kettek/apng"
	"github.com/pkg/errors"
)

type apngDecoder struct {
}

func (d apngDecoder) supportedContentTypes() []string {
	return []string{"image/apng"}
}

func (d apngDecoder) supportsAnimation() bool {
	return true
}

func (d apngDecoder) matches(img []byte, contentType string) bool {
	if contentType == "image/apng" {
		return true
	}
	return contentType == "image/png" && mimetype.Detect(img).Is("image/vnd.mozilla.apng")
}

func (d apngDecoder) GetOriginDimensions(b []byte, contentType string) (int, int, error) {
	return genericDecoder{}.GetOriginDimensions(b, "image/png")
}

func (d apngDecoder) Decode(b []byte, contentType string) (image.Image, error) {
	// the default image is a regular PNG
	return genericDecoder{}.Decode(b, "image/png")
}

func (d apngDecoder) DecodeAnimation(b []byte, contentType string) (*types.Artifact, error) {
	p, err := apng.DecodeAll(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "apng: error decoding image")
	}
	if len(p.Frames) == 0 {
		return nil, errors.New("apng: no frames")
	}
	if len(p.Frames) == 1 {
		return types.NewStill(p.Frames[0].Image, "image/png"), nil
	}

	// Every frame is rendered onto a full canvas, honouring the blend and
	// dispose ops of https://wiki.mozilla.org/APNG_Specification#.60fcTL.60:_The_Frame_Control_Chunk
	canvas := image.NewRGBA(p.Frames[0].Image.Bounds())
	artifact := &types.Artifact{
		Frames:      make([]image.Image, 0, len(p.Frames)),
		Delays:      make([]int, 0, len(p.Frames)),
		LoopCount:   int(p.LoopCount),
		ContentType: "image/png",
	}
	for _, frame := range p.Frames {
		size := frame.Image.Bounds().Size()
		area := image.Rect(frame.XOffset, frame.YOffset, frame.XOffset+size.X, frame.YOffset+size.Y)

		var previous *image.RGBA
		if frame.DisposeOp == apng.DISPOSE_OP_PREVIOUS {
			previous = image.NewRGBA(canvas.Bounds())
			draw.Draw(previous, previous.Bounds(), canvas, image.Point{}, draw.Src)
		}

		op := draw.Over
		if frame.BlendOp == apng.BLEND_OP_SOURCE {
			op = draw.Src
		}
		draw.Draw(canvas, area, frame.Image, frame.Image.Bounds().Min, op)

		artifact.Frames = append(artifact.Frames, imaging.Clone(canvas))
		artifact.Delays = append(artifact.Delays, delayHundredths(frame.DelayNumerator, frame.DelayDenominator))

		switch frame.DisposeOp {
		case apng.DISPOSE_OP_BACKGROUND:
			draw.Draw(canvas, area, image.Transparent, image.Point{}, draw.Src)
		case apng.DISPOSE_OP_PREVIOUS:
			canvas = previous
		}
	}
	return artifact, nil
}

func init() {
	decoders = append(decoders, apngDecoder{})
}
