// Package raster turns statement PDFs into page images for OCR. Scanned
// statements embed one full-page image per page; each is pulled out, scaled
// into the OCR model's working range and re-encoded as PNG.
package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/draw"
)

// Page is one rendered statement page.
type Page struct {
	Number int // 1-based
	PNG    []byte
	Width  int
	Height int
}

// Options bounds the output resolution. Zero fields take defaults.
type Options struct {
	MinDPI    int
	MaxPixels int
}

func (o Options) withDefaults() Options {
	if o.MinDPI <= 0 {
		o.MinDPI = DefaultMinDPI
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// PageCount returns the number of pages in the PDF.
func PageCount(pdf []byte) (int, error) {
	ctx, err := readContext(pdf)
	if err != nil {
		return 0, fmt.Errorf("PageCount: %w", err)
	}
	return ctx.PageCount, nil
}

// Rasterize extracts the page images from the PDF. Pages with no embedded
// image (pure text pages) are skipped; the page numbers of returned entries
// are preserved so gaps are visible to the caller.
func Rasterize(pdf []byte, opts Options) ([]Page, error) {
	opts = opts.withDefaults()

	ctx, err := readContext(pdf)
	if err != nil {
		return nil, fmt.Errorf("Rasterize: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("Rasterize: reading page dimensions: %w", err)
	}

	var pages []Page
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		img, err := largestPageImage(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("Rasterize: page %d: %w", pageNr, err)
		}
		if img == nil {
			continue
		}

		pageWidthPt := 0.0
		if pageNr-1 < len(dims) {
			pageWidthPt = dims[pageNr-1].Width
		}

		scaled := scaleToBounds(img, pageWidthPt, opts)

		var buf bytes.Buffer
		if err := png.Encode(&buf, scaled); err != nil {
			return nil, fmt.Errorf("Rasterize: encoding page %d: %w", pageNr, err)
		}
		bounds := scaled.Bounds()
		pages = append(pages, Page{
			Number: pageNr,
			PNG:    buf.Bytes(),
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}
	return pages, nil
}

func readContext(pdf []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}
	return ctx, nil
}

// largestPageImage decodes the page's image XObjects and returns the one with
// the most pixels, or nil when the page has none. Scanned pages carry the
// page scan as their dominant image; anything smaller is a logo or stamp.
func largestPageImage(ctx *model.Context, pageNr int) (image.Image, error) {
	objNrs := pdfcpu.ImageObjNrs(ctx, pageNr)
	if len(objNrs) == 0 {
		return nil, nil
	}

	images, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("extracting images: %w", err)
	}

	var best image.Image
	bestPixels := 0
	for _, pageImg := range images {
		decoded, _, err := image.Decode(pageImg)
		if err != nil {
			// Unsupported encodings (CCITT etc.) are skipped rather than
			// failing the whole page.
			continue
		}
		b := decoded.Bounds()
		if pixels := b.Dx() * b.Dy(); pixels > bestPixels {
			best, bestPixels = decoded, pixels
		}
	}
	return best, nil
}

// scaleToBounds upscales low-resolution scans to the minimum DPI, then caps
// the total pixel count.
func scaleToBounds(img image.Image, pageWidthPt float64, opts Options) image.Image {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	zoom := ZoomFor(width, pageWidthPt, opts.MinDPI)
	width = int(float64(width) * zoom)
	height = int(float64(height) * zoom)

	width, height = FitPixels(width, height, opts.MaxPixels)
	if width == b.Dx() && height == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
