package badge

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 600
	Height = 300

	frameWidth = 5
	titleScale = 4
	subScale   = 2
)

var (
	palette = map[string]color.RGBA{
		"scammer": {R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff},
		"owner":   {R: 0xff, G: 0xd7, B: 0x00, A: 0xff},
		"admin":   {R: 0x41, G: 0x69, B: 0xe1, A: 0xff},
		"user":    {R: 0x2e, G: 0x7d, B: 0x32, A: 0xff},
	}
	fallback = color.RGBA{R: 0x75, G: 0x75, B: 0x75, A: 0xff}
	frame    = color.RGBA{A: 0xff}
)

// Render draws a status card: coloured background, black frame, the status
// in capitals and an optional subtitle underneath.
func Render(status string, subtitle string) ([]byte, error) {
	bg, ok := palette[strings.ToLower(status)]
	if !ok {
		bg = fallback
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(frame), image.Point{}, draw.Src)
	inner := image.Rect(frameWidth, frameWidth, Width-frameWidth, Height-frameWidth)
	draw.Draw(img, inner, image.NewUniform(bg), image.Point{}, draw.Src)

	ink := textColor(bg)
	title := strings.ToUpper(status)
	titleY := Height / 2
	if subtitle != "" {
		titleY = Height/2 - 30
	}
	drawCentered(img, title, titleScale, titleY, ink)
	if subtitle != "" {
		drawCentered(img, subtitle, subScale, Height/2+50, ink)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawCentered renders text with the fixed 7x13 face on a scratch image and
// scales it up onto dst, centred horizontally around y.
func drawCentered(dst *image.RGBA, text string, scale int, y int, ink color.Color) {
	face := basicfont.Face7x13
	maxRunes := (Width - 4*frameWidth) / (face.Advance * scale)
	if r := []rune(text); len(r) > maxRunes {
		text = string(r[:maxRunes-3]) + "..."
	}

	d := &font.Drawer{Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Height
	if w == 0 {
		return
	}

	scratch := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = scratch
	d.Src = image.NewUniform(ink)
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(text)

	sw, sh := w*scale, h*scale
	x0 := (Width - sw) / 2
	y0 := y - sh/2
	target := image.Rect(x0, y0, x0+sw, y0+sh)
	draw.NearestNeighbor.Scale(dst, target, scratch, scratch.Bounds(), draw.Over, nil)
}

func textColor(bg color.RGBA) color.Color {
	// perceived luminance, integer form of 0.299R + 0.587G + 0.114B
	lum := (299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)) / 1000
	if lum > 150 {
		return color.Black
	}
	return color.White
}
