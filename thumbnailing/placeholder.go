package thumbnailing

import (
	"image"

	"github.com/fogleman/gg"
)

const (
	PlaceholderSize = 256
	RollCoverWidth  = 1050
	RollCoverHeight = 450 // 21:9 like cropped album covers
)

// Placeholder draws the neutral tile shown when nothing could be loaded.
func Placeholder(size int) image.Image {
	if size <= 0 {
		size = PlaceholderSize
	}
	s := float64(size)
	dc := gg.NewContext(size, size)
	dc.SetHexColor("#E0E0E0")
	dc.Clear()

	// a framed picture with a mountain and a sun
	dc.SetHexColor("#9E9E9E")
	dc.SetLineWidth(s / 32)
	dc.DrawRoundedRectangle(s*0.2, s*0.25, s*0.6, s*0.5, s/24)
	dc.Stroke()
	dc.MoveTo(s*0.26, s*0.68)
	dc.LineTo(s*0.44, s*0.44)
	dc.LineTo(s*0.56, s*0.58)
	dc.LineTo(s*0.63, s*0.5)
	dc.LineTo(s*0.74, s*0.68)
	dc.ClosePath()
	dc.Fill()
	dc.DrawCircle(s*0.64, s*0.36, s/20)
	dc.Fill()
	return dc.Image()
}

// EmptyRollCover draws the cover of a camera roll album with no media in it.
func EmptyRollCover() image.Image {
	w := float64(RollCoverWidth)
	h := float64(RollCoverHeight)
	dc := gg.NewContext(RollCoverWidth, RollCoverHeight)
	dc.SetHexColor("#263238")
	dc.Clear()

	// camera body, lens and shutter button
	dc.SetHexColor("#B0BEC5")
	bodyW := h * 0.5
	bodyH := h * 0.34
	x := (w - bodyW) / 2
	y := (h - bodyH) / 2
	dc.DrawRoundedRectangle(x, y, bodyW, bodyH, bodyH/8)
	dc.Fill()
	dc.DrawRectangle(x+bodyW*0.15, y-bodyH*0.12, bodyW*0.2, bodyH*0.14)
	dc.Fill()
	dc.SetHexColor("#263238")
	dc.DrawCircle(w/2, h/2, bodyH*0.32)
	dc.Fill()
	dc.SetHexColor("#B0BEC5")
	dc.DrawCircle(w/2, h/2, bodyH*0.2)
	dc.Fill()
	return dc.Image()
}
