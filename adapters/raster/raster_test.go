package raster

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/goliatone/go-gridexport/export"
)

func sampleLayout() export.Layout {
	snap := export.NewSnapshot("s", [][]string{{"Ano", "Valor"}, {"2020", "10"}}, "Tabela 1", "Fonte: Elaborado pelos autores.", time.Now())
	return export.BuildLayout(snap, export.DefaultStyle())
}

func TestRasterizeScalesCanvas(t *testing.T) {
	layout := sampleLayout()
	img, err := New().Rasterize(context.Background(), layout, export.CaptureOptions{Scale: 2})
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if img.Format != "PNG" {
		t.Fatalf("unexpected format %q", img.Format)
	}
	if img.Width != int(math.Ceil(layout.Width*2)) || img.Height != int(math.Ceil(layout.Height*2)) {
		t.Fatalf("unexpected size %dx%d for layout %vx%v", img.Width, img.Height, layout.Width, layout.Height)
	}

	decoded, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != img.Width || decoded.Bounds().Dy() != img.Height {
		t.Fatalf("encoded bounds mismatch")
	}
}

func TestRasterizeHeaderFill(t *testing.T) {
	layout := sampleLayout()
	img, err := New().Rasterize(context.Background(), layout, export.CaptureOptions{Scale: 1})
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	decoded, _ := png.Decode(bytes.NewReader(img.Data))

	header, _ := layout.Cell(0, 0)
	body, _ := layout.Cell(1, 0)
	// Sample near the bottom-right corner inside the border, away from text.
	hx := int(header.Box.X + header.Box.W - 3)
	hy := int(header.Box.Y + header.Box.H - 3)
	bx := int(body.Box.X + body.Box.W - 3)
	by := int(body.Box.Y + body.Box.H - 3)

	want := parseColor(layout.Style.HeaderBackground, color.RGBA{})
	got := color.RGBAModel.Convert(decoded.At(hx, hy)).(color.RGBA)
	if got != want {
		t.Fatalf("expected header fill %v, got %v", want, got)
	}
	white := color.RGBA{255, 255, 255, 255}
	if got := color.RGBAModel.Convert(decoded.At(bx, by)).(color.RGBA); got != white {
		t.Fatalf("expected body fill white, got %v", got)
	}
}

func TestRasterizeRejectsEmptyLayout(t *testing.T) {
	_, err := New().Rasterize(context.Background(), export.Layout{}, export.DefaultCaptureOptions())
	if export.KindFromError(err) != export.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRasterizeMaxPixels(t *testing.T) {
	r := New()
	r.MaxPixels = 100
	if _, err := r.Rasterize(context.Background(), sampleLayout(), export.DefaultCaptureOptions()); err == nil {
		t.Fatalf("expected pixel limit error")
	}
}

func TestRasterizeHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Rasterize(ctx, sampleLayout(), export.DefaultCaptureOptions()); err == nil {
		t.Fatalf("expected canceled error")
	}
}

func TestMeasureText(t *testing.T) {
	if MeasureText("", 14) != 0 {
		t.Fatalf("expected zero width for empty text")
	}
	a := MeasureText("abc", 13)
	if a != 21 {
		t.Fatalf("expected 21px for three 7px glyphs at natural size, got %v", a)
	}
	if MeasureText("abc", 26) != 2*a {
		t.Fatalf("expected linear scaling with font size")
	}
}

func TestParseColor(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 255}
	if got := parseColor("#1e3a5f", fallback); got != (color.RGBA{0x1e, 0x3a, 0x5f, 255}) {
		t.Fatalf("unexpected color %v", got)
	}
	if got := parseColor("#fff", fallback); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("unexpected short color %v", got)
	}
	if got := parseColor("navy", fallback); got != fallback {
		t.Fatalf("expected fallback, got %v", got)
	}
}
