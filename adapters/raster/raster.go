// Package raster draws table layouts into PNG images without a browser.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/goliatone/go-gridexport/export"
)

// DefaultMaxPixels bounds the canvas size.
const DefaultMaxPixels = 64 << 20

// Rasterizer renders export layouts with a bitmap font.
type Rasterizer struct {
	Face         font.Face
	Interpolator draw.Interpolator
	MaxPixels    int
	Logger       export.Logger
}

// New returns a rasterizer using basicfont.Face7x13 and bilinear scaling.
func New() *Rasterizer {
	return &Rasterizer{
		Face:         basicfont.Face7x13,
		Interpolator: draw.ApproxBiLinear,
		MaxPixels:    DefaultMaxPixels,
		Logger:       export.NopLogger{},
	}
}

// MeasureText reports the width basicfont.Face7x13 needs for text at fontSize.
// It can be set as export.Style.Measure so layouts match this rasterizer.
func MeasureText(text string, fontSize float64) float64 {
	face := basicfont.Face7x13
	natural := float64(font.MeasureString(face, text).Ceil())
	return natural * fontSize / float64(faceHeight(face))
}

// Rasterize draws the layout at opts.Scale and encodes it as PNG.
func (r *Rasterizer) Rasterize(ctx context.Context, layout export.Layout, opts export.CaptureOptions) (export.Image, error) {
	if layout.Width <= 0 || layout.Height <= 0 {
		return export.Image{}, export.NewError(export.KindValidation, "layout has no area", nil)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	face := r.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	interp := r.Interpolator
	if interp == nil {
		interp = draw.ApproxBiLinear
	}
	maxPixels := r.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	w := int(math.Ceil(layout.Width * scale))
	h := int(math.Ceil(layout.Height * scale))
	if w*h > maxPixels {
		return export.Image{}, export.NewError(export.KindValidation, fmt.Sprintf("capture of %dx%d exceeds %d pixels", w, h, maxPixels), nil)
	}

	style := layout.Style
	c := canvas{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		scale:  scale,
		face:   face,
		interp: interp,
	}
	c.fill(export.Rect{W: layout.Width, H: layout.Height}, parseColor(style.Background, color.RGBA{255, 255, 255, 255}))

	c.text(layout.Title, style.LineHeight)

	border := parseColor(style.BorderColor, color.RGBA{156, 163, 175, 255})
	for _, cell := range layout.Table.Cells {
		if err := ctx.Err(); err != nil {
			return export.Image{}, err
		}
		c.fill(cell.Box, parseColor(cell.Fill, color.RGBA{255, 255, 255, 255}))
		c.stroke(cell.Box, style.BorderWidth, border)
		c.text(cell.Text, style.LineHeight)
	}

	c.text(layout.Caption, style.LineHeight)

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return export.Image{}, export.NewError(export.KindInternal, "png encode failed", err)
	}
	if opts.Logging && r.Logger != nil {
		r.Logger.Debugf("raster capture: %dx%d at scale %.2f (%d bytes)", w, h, scale, buf.Len())
	}
	return export.Image{Data: buf.Bytes(), Width: w, Height: h, Format: "PNG"}, nil
}

type canvas struct {
	img    *image.RGBA
	scale  float64
	face   font.Face
	interp draw.Interpolator
}

func (c canvas) rect(r export.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X*c.scale)),
		int(math.Round(r.Y*c.scale)),
		int(math.Round((r.X+r.W)*c.scale)),
		int(math.Round((r.Y+r.H)*c.scale)),
	)
}

func (c canvas) fill(r export.Rect, col color.Color) {
	draw.Draw(c.img, c.rect(r), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c canvas) stroke(r export.Rect, width float64, col color.Color) {
	if width <= 0 {
		return
	}
	px := int(math.Max(1, math.Round(width*c.scale)))
	b := c.rect(r)
	src := image.NewUniform(col)
	draw.Draw(c.img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+px), src, image.Point{}, draw.Src)
	draw.Draw(c.img, image.Rect(b.Min.X, b.Max.Y-px, b.Max.X, b.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(c.img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+px, b.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(c.img, image.Rect(b.Max.X-px, b.Min.Y, b.Max.X, b.Max.Y), src, image.Point{}, draw.Src)
}

// text draws each line at the natural font size and scales it into place.
func (c canvas) text(block export.TextBlock, lineHeight float64) {
	if block.FontSize <= 0 {
		return
	}
	if lineHeight <= 0 {
		lineHeight = 1
	}
	col := parseColor(block.Color, color.RGBA{0, 0, 0, 255})
	natural := float64(faceHeight(c.face))
	factor := block.FontSize * c.scale / natural
	lineBox := block.FontSize * lineHeight * c.scale

	for i, line := range block.Lines {
		if line == "" {
			continue
		}
		glyphs := c.renderLine(line, col, block.Bold)
		dw := float64(glyphs.Bounds().Dx()) * factor
		dh := float64(glyphs.Bounds().Dy()) * factor

		x := block.Box.X * c.scale
		if block.Align == export.AlignCenter {
			x += (block.Box.W*c.scale - dw) / 2
		}
		y := block.Box.Y*c.scale + float64(i)*lineBox + (lineBox-dh)/2

		dst := image.Rect(int(math.Round(x)), int(math.Round(y)), int(math.Round(x+dw)), int(math.Round(y+dh)))
		c.interp.Scale(c.img, dst, glyphs, glyphs.Bounds(), draw.Over, nil)
	}
}

func (c canvas) renderLine(line string, col color.Color, bold bool) *image.RGBA {
	width := font.MeasureString(c.face, line).Ceil()
	if bold {
		width++
	}
	metrics := c.face.Metrics()
	height := faceHeight(c.face)
	img := image.NewRGBA(image.Rect(0, 0, max(width, 1), height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(line)
	if bold {
		d.Dot = fixed.P(1, metrics.Ascent.Ceil())
		d.DrawString(line)
	}
	return img
}

func faceHeight(face font.Face) int {
	metrics := face.Metrics()
	h := (metrics.Ascent + metrics.Descent).Ceil()
	if h <= 0 {
		h = 13
	}
	return h
}

// parseColor reads #rgb or #rrggbb, returning fallback for anything else.
func parseColor(value string, fallback color.RGBA) color.RGBA {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
