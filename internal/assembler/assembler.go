// Package assembler builds the filtered report: a PDF holding only the
// positively-classified pages of a source document, in original page order.
package assembler

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/plaacpipe/internal/raster"
)

// ErrNoPositivePages is returned when no page qualified. Not a failure; the
// batch item simply produces no filtered output.
var ErrNoPositivePages = errors.New("no positive pages")

// Assemble writes the pages named by positive indices into a single PDF at
// outPath, ascending by index regardless of the order classification
// finished in. An existing file at outPath is replaced.
func Assemble(pages []raster.Page, positive []int, outPath string) error {
	selected, err := SelectPages(pages, positive)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return ErrNoPositivePages
	}

	paths := make([]string, len(selected))
	for i, p := range selected {
		paths[i] = p.Path
	}

	// pdfcpu appends when the target exists; remove it for a clean overwrite.
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", outPath, err)
	}
	if err := api.ImportImagesFile(paths, outPath, nil, nil); err != nil {
		return fmt.Errorf("assemble %s: %w", outPath, err)
	}

	log.Info().Str("output", outPath).Int("pages", len(paths)).Msg("filtered report written")
	return nil
}

// SelectPages resolves positive indices against the page set, sorted
// ascending. An index with no matching page breaks the aggregation
// invariant and is an error.
func SelectPages(pages []raster.Page, positive []int) ([]raster.Page, error) {
	byIndex := make(map[int]raster.Page, len(pages))
	for _, p := range pages {
		byIndex[p.Index] = p
	}

	idx := make([]int, len(positive))
	copy(idx, positive)
	sort.Ints(idx)

	selected := make([]raster.Page, 0, len(idx))
	for _, i := range idx {
		p, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("positive index %d has no rasterized page", i)
		}
		selected = append(selected, p)
	}
	return selected, nil
}
