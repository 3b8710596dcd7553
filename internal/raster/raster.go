package raster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Page pairs a 1-based page index with the raster image written for it.
// Index order always equals document page order; relying on filename sorting
// alone is not enough, so the pairing is validated after every rasterization.
type Page struct {
	Index int
	Path  string
}

// RasterizationError means a document could not be converted to page images.
// It is fatal for that document only.
type RasterizationError struct {
	Document string
	Err      error
}

func (e *RasterizationError) Error() string {
	return fmt.Sprintf("rasterize %s: %v", e.Document, e.Err)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

func rasterErr(document string, format string, args ...interface{}) error {
	return &RasterizationError{Document: document, Err: fmt.Errorf(format, args...)}
}

// Rasterizer converts a PDF into one raster image per page, written into
// destDir with the given filename prefix. Implementations must clean stale
// files for the prefix first and return pages in ascending index order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, destDir, prefix string) ([]Page, error)
}

// CleanStale removes every entry of dir whose name starts with prefix.
// A re-run against the same document must never see pages left behind by a
// prior, possibly differently-paginated, run.
func CleanStale(dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read temp dir: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove stale %s: %w", e.Name(), err)
		}
	}
	return nil
}

// VerifyPDF probes that path really holds a PDF before handing it to a
// rendering backend.
func VerifyPDF(path string) error {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", path, err)
	}
	if !m.Is("application/pdf") {
		return fmt.Errorf("%s is %s, not a PDF", path, m.String())
	}
	return nil
}

// validateSequence checks that pages form a gap-free 1..N sequence and that
// lexicographic filename order matches index order.
func validateSequence(pages []Page) error {
	byName := make([]Page, len(pages))
	copy(byName, pages)
	sort.Slice(byName, func(i, j int) bool {
		return filepath.Base(byName[i].Path) < filepath.Base(byName[j].Path)
	})
	for i, p := range byName {
		if p.Index != i+1 {
			return fmt.Errorf("page sequence broken: position %d holds index %d (%s)", i+1, p.Index, filepath.Base(p.Path))
		}
	}
	return nil
}
