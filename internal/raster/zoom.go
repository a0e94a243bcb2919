package raster

import "math"

// Default rendering bounds. Statement pages are upscaled until small print is
// legible to the OCR model, then capped so request payloads stay reasonable.
const (
	DefaultMinDPI    = 216
	DefaultMaxPixels = 1_800_000
)

// ZoomFor returns the upscale factor for an image that spans a page of the
// given width in points. Images already at or above minDPI keep their size.
func ZoomFor(imageWidthPx int, pageWidthPt float64, minDPI int) float64 {
	if imageWidthPx <= 0 || pageWidthPt <= 0 {
		return 1.0
	}
	dpi := float64(imageWidthPx) / (pageWidthPt / 72.0)
	if dpi >= float64(minDPI) {
		return 1.0
	}
	return float64(minDPI) / dpi
}

// FitPixels scales the dimensions down so the total pixel count does not
// exceed maxPixels, preserving aspect ratio. Dimensions already within the
// bound are returned unchanged.
func FitPixels(width, height, maxPixels int) (int, int) {
	if maxPixels <= 0 || width*height <= maxPixels {
		return width, height
	}
	scale := math.Sqrt(float64(maxPixels) / float64(width*height))
	return int(float64(width) * scale), int(float64(height) * scale)
}
