package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
)

// FitzRasterizer renders pages in-process through MuPDF.
type FitzRasterizer struct {
	DPI      int
	MaxWidth int // rendered pages wider than this are downscaled; 0 disables
}

// NewFitzRasterizer returns a rasterizer with the given render DPI.
func NewFitzRasterizer(dpi, maxWidth int) *FitzRasterizer {
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzRasterizer{DPI: dpi, MaxWidth: maxWidth}
}

func (r *FitzRasterizer) Rasterize(ctx context.Context, pdfPath, destDir, prefix string) ([]Page, error) {
	if err := VerifyPDF(pdfPath); err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}
	if err := CleanStale(destDir, prefix); err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, rasterErr(pdfPath, "open: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total <= 0 {
		return nil, rasterErr(pdfPath, "document has no pages")
	}

	// Cross-check against an independent page count. A disagreement means
	// the rendering backend silently dropped pages.
	if n, cerr := api.PageCountFile(pdfPath); cerr != nil {
		log.Warn().Err(cerr).Str("file", pdfPath).Msg("pdfcpu page count unavailable")
	} else if n != total {
		return nil, rasterErr(pdfPath, "page count mismatch: renderer sees %d, document declares %d", total, n)
	}

	pages := make([]Page, 0, total)
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return nil, &RasterizationError{Document: pdfPath, Err: ctx.Err()}
		default:
		}

		img, err := doc.ImageDPI(i, float64(r.DPI))
		if err != nil {
			return nil, rasterErr(pdfPath, "render page %d: %w", i+1, err)
		}
		out := filepath.Join(destDir, fmt.Sprintf("%s-%03d.png", prefix, i+1))
		if err := writePNG(out, r.shrink(img)); err != nil {
			return nil, rasterErr(pdfPath, "write page %d: %w", i+1, err)
		}
		pages = append(pages, Page{Index: i + 1, Path: out})
	}

	if err := validateSequence(pages); err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}
	log.Debug().Str("file", pdfPath).Int("pages", total).Int("dpi", r.DPI).Msg("rasterized document")
	return pages, nil
}

// shrink downscales img to MaxWidth, keeping aspect ratio.
func (r *FitzRasterizer) shrink(img image.Image) image.Image {
	if r.MaxWidth <= 0 || img.Bounds().Dx() <= r.MaxWidth {
		return img
	}
	b := img.Bounds()
	h := b.Dy() * r.MaxWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, r.MaxWidth, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
