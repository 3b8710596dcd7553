// Package orchestrator walks a batch of inputs through the pipeline:
// analyze -> plot -> rasterize -> classify -> assemble -> cleanup. One
// item's failure never aborts the batch, and temp rasters are reclaimed no
// matter how the item ends.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/plaacpipe/internal/assembler"
	"github.com/local/plaacpipe/internal/config"
	"github.com/local/plaacpipe/internal/metrics"
	"github.com/local/plaacpipe/internal/raster"
	"github.com/local/plaacpipe/internal/redline"
)

// Analyzer produces the scored report for a FASTA input. Nil in filter-only
// runs where the plot PDFs already exist.
type Analyzer interface {
	Run(ctx context.Context, fastaPath, outTxt string) error
	Plot(ctx context.Context, txtPath, outPDF string) error
}

// ClassifyFunc classifies one page raster.
type ClassifyFunc func(path string, p config.DetectionProfile) (bool, error)

// AssembleFunc writes the positive pages into a filtered PDF.
type AssembleFunc func(pages []raster.Page, positive []int, outPath string) error

// Dependencies injects the pipeline collaborators.
type Dependencies struct {
	Rasterizer raster.Rasterizer
	Classify   ClassifyFunc
	Assemble   AssembleFunc
	Analyzer   Analyzer
}

// Item is one unit of batch work. Fasta is empty when the report PDF
// already exists and only filtering is wanted.
type Item struct {
	Name    string // base name, e.g. "abc" for abc.fasta
	Fasta   string
	PlotPDF string
}

// Failure records where and why one item failed.
type Failure struct {
	Document string
	Stage    string
	Err      error
}

// Summary aggregates a finished batch.
type Summary struct {
	Processed    int
	Hits         int
	DecodeErrors int
	Failures     []Failure
}

// Batch runs items through the pipeline sequentially. Summary counters are
// owned here and updated only after each item fully resolves, so per-page
// parallelism inside an item never touches them.
type Batch struct {
	cfg  config.Config
	deps Dependencies
}

// New builds a Batch, defaulting any unset collaborator.
func New(cfg config.Config, deps Dependencies) *Batch {
	if deps.Classify == nil {
		deps.Classify = redline.ClassifyFile
	}
	if deps.Assemble == nil {
		deps.Assemble = assembler.Assemble
	}
	if deps.Rasterizer == nil {
		deps.Rasterizer = raster.NewFitzRasterizer(cfg.Raster.DPI, cfg.Raster.MaxWidth)
	}
	return &Batch{cfg: cfg, deps: deps}
}

// Run processes every item and returns the batch summary.
func (b *Batch) Run(ctx context.Context, items []Item) Summary {
	var sum Summary
	for _, it := range items {
		log.Info().Str("item", it.Name).Msg("processing")
		res := b.processItem(ctx, it)
		sum.Processed++
		sum.DecodeErrors += res.decodeErrors
		switch {
		case res.err != nil:
			sum.Failures = append(sum.Failures, Failure{Document: it.Name, Stage: res.stage, Err: res.err})
			metrics.IncDocument("error")
			log.Error().Err(res.err).Str("item", it.Name).Str("stage", res.stage).Msg("item failed")
		case res.hits > 0:
			sum.Hits++
			metrics.IncDocument("hits")
			log.Info().Str("item", it.Name).Int("positive_pages", res.hits).Msg("item complete with hits")
		default:
			metrics.IncDocument("no_hits")
			log.Info().Str("item", it.Name).Msg("item complete, no qualifying pages")
		}
	}
	return sum
}

type itemResult struct {
	hits         int
	decodeErrors int
	stage        string
	err          error
}

func (b *Batch) processItem(ctx context.Context, it Item) (res itemResult) {
	plotPDF := it.PlotPDF

	if it.Fasta != "" && b.deps.Analyzer != nil {
		res.stage = "analyze"
		outTxt := filepath.Join(b.cfg.Dirs.Output, it.Name+"_output.txt")
		plotPDF = filepath.Join(b.cfg.Dirs.Output, it.Name+"_plot.pdf")

		start := time.Now()
		if res.err = b.deps.Analyzer.Run(ctx, it.Fasta, outTxt); res.err != nil {
			return res
		}
		metrics.ObserveStage("analyze", time.Since(start))

		start = time.Now()
		if res.err = b.deps.Analyzer.Plot(ctx, outTxt, plotPDF); res.err != nil {
			return res
		}
		metrics.ObserveStage("plot", time.Since(start))
	}

	base := strings.TrimSuffix(filepath.Base(plotPDF), filepath.Ext(plotPDF))

	// Stale rasters from an earlier run of this document, including crashed
	// ones, must not leak into the new classification.
	res.stage = "rasterize"
	if res.err = raster.CleanStale(b.cfg.Dirs.Temp, base); res.err != nil {
		return res
	}

	// Each item gets its own work directory so parallel items never race on
	// each other's cleanup.
	workDir := filepath.Join(b.cfg.Dirs.Temp, fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]))
	if res.err = os.MkdirAll(workDir, 0o755); res.err != nil {
		return res
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("temp cleanup failed")
		}
	}()

	start := time.Now()
	pages, err := b.deps.Rasterizer.Rasterize(ctx, plotPDF, workDir, base)
	if err != nil {
		res.err = err
		return res
	}
	metrics.ObserveStage("rasterize", time.Since(start))
	metrics.AddRasterPages(len(pages))

	res.stage = "classify"
	start = time.Now()
	positive, decodeErrors := b.classifyPages(ctx, pages)
	metrics.ObserveStage("classify", time.Since(start))
	res.decodeErrors = decodeErrors

	if len(positive) == 0 {
		res.stage = "done"
		return res
	}

	res.stage = "assemble"
	out := filepath.Join(b.cfg.Dirs.Filtered, it.Name+"_filtered.pdf")
	start = time.Now()
	if err := b.deps.Assemble(pages, positive, out); err != nil {
		if errors.Is(err, assembler.ErrNoPositivePages) {
			res.stage = "done"
			return res
		}
		res.err = err
		return res
	}
	metrics.ObserveStage("assemble", time.Since(start))

	res.stage = "done"
	res.hits = len(positive)
	return res
}

// classifyPages evaluates every page, optionally in parallel. Pages are
// independent, so completion order never matters: results land in a slice
// indexed by position and positive indices come out ascending. A page that
// cannot be decoded counts as negative but is reported, never swallowed.
func (b *Batch) classifyPages(ctx context.Context, pages []raster.Page) (positive []int, decodeErrors int) {
	results := make([]bool, len(pages))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	limit := b.cfg.Worker.PageConcurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, p := range pages {
		i, p := i, p
		g.Go(func() error {
			ok, err := b.deps.Classify(p.Path, b.cfg.Detection)
			if err != nil {
				var de *redline.DecodeError
				if errors.As(err, &de) {
					log.Warn().Err(err).Int("page", p.Index).Msg("page unreadable, treated as negative")
					metrics.IncPage("decode_error")
					mu.Lock()
					decodeErrors++
					mu.Unlock()
					return nil
				}
				log.Warn().Err(err).Int("page", p.Index).Msg("classification failed, treated as negative")
				metrics.IncPage("decode_error")
				mu.Lock()
				decodeErrors++
				mu.Unlock()
				return nil
			}
			results[i] = ok
			if ok {
				metrics.IncPage("positive")
				log.Debug().Int("page", p.Index).Str("file", filepath.Base(p.Path)).Msg("red trace reaches top")
			} else {
				metrics.IncPage("negative")
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range results {
		if ok {
			positive = append(positive, pages[i].Index)
		}
	}
	return positive, decodeErrors
}
