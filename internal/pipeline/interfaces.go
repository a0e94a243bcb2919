package pipeline

import (
	"context"

	"github.com/finparse/statement-pipeline/internal/ocr"
	"github.com/finparse/statement-pipeline/internal/raster"
)

// Rasterizer turns a PDF into page images.
type Rasterizer interface {
	Rasterize(pdf []byte) ([]raster.Page, error)
	PageCount(pdf []byte) (int, error)
}

// TableExtractor detects tables on a page image.
type TableExtractor interface {
	ExtractTables(ctx context.Context, image []byte) (ocr.Result, error)
}

// Transcriber converts detected table text into CSV transaction data.
type Transcriber interface {
	Transcribe(ctx context.Context, tableText string) (string, error)
}

// PDFRasterizer is the Rasterizer backed by the raster package.
type PDFRasterizer struct {
	Options raster.Options
}

func (r *PDFRasterizer) Rasterize(pdf []byte) ([]raster.Page, error) {
	return raster.Rasterize(pdf, r.Options)
}

func (r *PDFRasterizer) PageCount(pdf []byte) (int, error) {
	return raster.PageCount(pdf)
}
