package i

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"

	"github.com/DeveloperOl/lespas/types"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

type gifDecoder struct {
}

func (d gifDecoder) supportedContentTypes() []string {
	return []string{"image/gif"}
}

func (d gifDecoder) supportsAnimation() bool {
	return true
}

func (d gifDecoder) matches(img []byte, contentType string) bool {
	return contentType == "image/gif"
}

func (d gifDecoder) GetOriginDimensions(b []byte, contentType string) (int, int, error) {
	cfg, err := gif.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, errors.Wrap(err, "gif: error reading dimensions")
	}
	return cfg.Width, cfg.Height, nil
}

func (d gifDecoder) Decode(b []byte, contentType string) (image.Image, error) {
	img, err := gif.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "gif: error decoding image")
	}
	return img, nil
}

func (d gifDecoder) DecodeAnimation(b []byte, contentType string) (*types.Artifact, error) {
	g, err := gif.DecodeAll(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "gif: error decoding image")
	}
	if len(g.Image) == 0 {
		return nil, errors.New("gif: no frames")
	}
	if len(g.Image) == 1 {
		return types.NewStill(g.Image[0], "image/gif"), nil
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		for _, frame := range g.Image {
			bounds = bounds.Union(frame.Bounds())
		}
	}

	artifact := &types.Artifact{
		Frames:      make([]image.Image, 0, len(g.Image)),
		Delays:      make([]int, 0, len(g.Image)),
		LoopCount:   gifPlays(g.LoopCount),
		ContentType: "image/gif",
	}

	// Frames are partial updates of a shared canvas, see
	// https://www.w3.org/Graphics/GIF/spec-gif89a.txt for the disposal methods
	canvas := image.NewRGBA(bounds)
	for i, frame := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.RGBA
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(canvas.Bounds())
			draw.Draw(previous, previous.Bounds(), canvas, image.Point{}, draw.Src)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		artifact.Frames = append(artifact.Frames, imaging.Clone(canvas))

		delay := 0
		if i < len(g.Delay) {
			delay = g.Delay[i]
		}
		artifact.Delays = append(artifact.Delays, delay)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return artifact, nil
}

// gifPlays maps the GIF loop extension onto a play count: -1 plays once, 0
// loops forever and n repeats n more times.
func gifPlays(loopCount int) int {
	switch {
	case loopCount < 0:
		return 1
	case loopCount == 0:
		return 0
	default:
		return loopCount + 1
	}
}

func init() {
	decoders = append(decoders, gifDecoder{})
}
