package pdf

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// minSlicePx guards against pathological tiny slices when the surface
// reports an extreme pixel density.
const minSlicePx = 300

// RasterizeSlices converts a pre-laid-out preview surface of unbounded
// height into a paginated PDF. The surface is cut into page-height chunks,
// each embedded as a compressed raster image on its own page.
//
// pixelsPerPoint is the surface's density: how many source pixels map onto
// one PDF point. A browser preview captured at 96dpi has 96/72 ≈ 1.333.
func RasterizeSlices(surface image.Image, pixelsPerPoint float64) ([]byte, error) {
	if surface == nil {
		return nil, fmt.Errorf("nil surface")
	}
	if pixelsPerPoint <= 0 {
		return nil, fmt.Errorf("invalid pixels-per-point ratio %f", pixelsPerPoint)
	}

	bounds := surface.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty surface %dx%d", width, height)
	}

	printableH := bottomLimit - marginTop
	sliceH := int(printableH * pixelsPerPoint)
	if sliceH < minSlicePx {
		sliceH = minSlicePx
	}

	f := gofpdf.New("P", "pt", "A4", "")
	f.SetAutoPageBreak(false, 0)

	// Every slice is scaled to the printable width; the last one keeps its
	// own (shorter) height.
	targetW := contentW
	for top, idx := 0, 0; top < height; top, idx = top+sliceH, idx+1 {
		bottom := top + sliceH
		if bottom > height {
			bottom = height
		}
		slice := imaging.Crop(surface, image.Rect(bounds.Min.X, bounds.Min.Y+top, bounds.Min.X+width, bounds.Min.Y+bottom))

		var jpg bytes.Buffer
		if err := imaging.Encode(&jpg, slice, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return nil, fmt.Errorf("encode slice %d: %w", idx, err)
		}

		name := fmt.Sprintf("slice-%d", idx)
		opts := gofpdf.ImageOptions{ImageType: "JPG"}
		f.RegisterImageOptionsReader(name, opts, &jpg)

		sliceHPt := float64(bottom-top) / pixelsPerPoint * (targetW / (float64(width) / pixelsPerPoint))
		f.AddPage()
		f.ImageOptions(name, marginLeft, marginTop, targetW, sliceHPt, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := f.Output(&out); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return out.Bytes(), nil
}
