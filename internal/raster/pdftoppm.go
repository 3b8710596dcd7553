package raster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// PdftoppmRasterizer shells out to Poppler's pdftoppm. It exists for
// deployments where MuPDF's renderer disagrees with the plots produced by
// the R toolchain; pdftoppm matches the original pipeline pixel for pixel.
type PdftoppmRasterizer struct {
	DPI     int
	Timeout time.Duration
}

func NewPdftoppmRasterizer(dpi int, timeout time.Duration) *PdftoppmRasterizer {
	if dpi <= 0 {
		dpi = 150
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PdftoppmRasterizer{DPI: dpi, Timeout: timeout}
}

func (r *PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath, destDir, prefix string) ([]Page, error) {
	if err := VerifyPDF(pdfPath); err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}
	if err := CleanStale(destDir, prefix); err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}

	cmd := exec.Command(
		"pdftoppm",
		"-png",
		"-r", strconv.Itoa(r.DPI),
		pdfPath,
		filepath.Join(destDir, prefix),
	)
	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("pdftoppm command")

	// A hung external call must not stall the whole batch.
	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		return nil, rasterErr(pdfPath, "start pdftoppm: %w", err)
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, rasterErr(pdfPath, "pdftoppm: %w", err)
		}
	case <-time.After(r.Timeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, rasterErr(pdfPath, "pdftoppm timeout after %v", r.Timeout)
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, &RasterizationError{Document: pdfPath, Err: ctx.Err()}
	}

	pages, err := collectPages(destDir, prefix)
	if err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}
	if len(pages) == 0 {
		return nil, rasterErr(pdfPath, "pdftoppm produced no pages")
	}
	if err := validateSequence(pages); err != nil {
		return nil, &RasterizationError{Document: pdfPath, Err: err}
	}
	return pages, nil
}

// collectPages gathers pdftoppm output files (prefix-NN.png) and recovers the
// explicit page index from each filename.
func collectPages(dir, prefix string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read temp dir: %w", err)
	}
	var pages []Page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), ".png")
		idx, err := strconv.Atoi(numPart)
		if err != nil {
			return nil, fmt.Errorf("unparseable page number in %s", name)
		}
		pages = append(pages, Page{Index: idx, Path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	return pages, nil
}
