package export

import (
	"fmt"
	"math"
)

// FitOptions controls how a capture is placed on a page.
type FitOptions struct {
	// Margin is the fraction of the fitting scale that is kept.
	Margin float64
	// Top is the fixed distance from the top edge in page units.
	Top float64
}

// DefaultFitOptions keeps 90% of the fit and anchors the image 30mm from the top.
func DefaultFitOptions() FitOptions {
	return FitOptions{Margin: 0.9, Top: 30}
}

// Placement is the position and size of an image on a page.
type Placement struct {
	Scale  float64
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Fit scales an image uniformly to fit the page, shrinks it by the margin,
// centres it horizontally and anchors it at a fixed top offset.
// The vertical position does not depend on the image height.
func Fit(pageW, pageH float64, imgW, imgH int, opts FitOptions) (Placement, error) {
	if imgW <= 0 || imgH <= 0 {
		return Placement{}, NewError(KindValidation, fmt.Sprintf("image dimensions must be positive, got %dx%d", imgW, imgH), nil).WithCode("invalid_image")
	}
	if pageW <= 0 || pageH <= 0 {
		return Placement{}, NewError(KindValidation, fmt.Sprintf("page dimensions must be positive, got %gx%g", pageW, pageH), nil).WithCode("invalid_page")
	}
	margin := opts.Margin
	if margin <= 0 {
		margin = 1
	}

	w := float64(imgW)
	h := float64(imgH)
	scale := math.Min(pageW/w, pageH/h) * margin
	placedW := w * scale

	return Placement{
		Scale:  scale,
		X:      (pageW - placedW) / 2,
		Y:      opts.Top,
		Width:  placedW,
		Height: h * scale,
	}, nil
}
