package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/plaacpipe/internal/config"
	"github.com/local/plaacpipe/internal/depcheck"
	logpkg "github.com/local/plaacpipe/internal/logger"
	"github.com/local/plaacpipe/internal/metrics"
	"github.com/local/plaacpipe/internal/orchestrator"
	"github.com/local/plaacpipe/internal/plaac"
	"github.com/local/plaacpipe/internal/raster"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	dirsFlag := flag.String("dirs", "", "comma-separated directory override: tools,input,output,filtered,temp (empty fields keep defaults)")
	targetsFlag := flag.String("targets", "", "comma-separated FASTA filenames in the input dir; empty processes all")
	filterOnly := flag.Bool("filter-only", false, "skip PLAAC analysis; classify existing *_plot.pdf reports in the output dir")
	installDeps := flag.Bool("install-deps", false, "install missing external tools before running (apt-get/brew)")
	rasterBackend := flag.String("raster", cfg.Raster.Backend, "rasterization backend: fitz or pdftoppm")
	profilePath := flag.String("profile", "", "YAML detection profile overriding the built-in ROI policy")
	flag.Parse()

	if err := logpkg.Init(cfg.Logging, cfg.Axiom); err != nil {
		log.Fatal().Err(err).Msg("logger init failed")
	}
	defer logpkg.Close()

	if err := cfg.ApplyDirOverride(*dirsFlag); err != nil {
		log.Fatal().Err(err).Msg("bad -dirs override")
	}
	cfg.Raster.Backend = *rasterBackend

	if *profilePath != "" {
		p, err := config.LoadDetectionProfile(*profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("bad detection profile")
		}
		cfg.Detection = p
	}
	if err := cfg.Detection.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad detection profile")
	}

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Warn().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics listener stopped")
			}
		}()
	}

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("could not create working directories")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Which external binaries this run needs. A missing requirement is a
	// hard stop before any document is touched.
	var required []string
	if !*filterOnly {
		required = append(required, depcheck.Java, depcheck.Rscript)
	}
	if cfg.Raster.Backend == "pdftoppm" {
		required = append(required, depcheck.Pdftoppm)
	}
	if *installDeps {
		if missing := depcheck.Probe(required).Missing(); len(missing) > 0 {
			if err := depcheck.Install(ctx, missing); err != nil {
				log.Fatal().Err(err).Msg("dependency install failed")
			}
		}
	}
	if err := depcheck.Require(required); err != nil {
		log.Fatal().Err(err).Msg("required external tools unavailable")
	}

	items, err := collectItems(cfg, *targetsFlag, *filterOnly)
	if err != nil {
		log.Fatal().Err(err).Msg("no work to do")
	}

	deps := orchestrator.Dependencies{}
	if cfg.Raster.Backend == "pdftoppm" {
		deps.Rasterizer = raster.NewPdftoppmRasterizer(cfg.Raster.DPI, cfg.Raster.Timeout)
	} else {
		deps.Rasterizer = raster.NewFitzRasterizer(cfg.Raster.DPI, cfg.Raster.MaxWidth)
	}
	if !*filterOnly {
		deps.Analyzer = &plaac.Runner{
			ToolsDir:    cfg.Dirs.Tools,
			JarName:     cfg.Plaac.JarName,
			PlotScript:  cfg.Plaac.PlotScript,
			RunTimeout:  cfg.Plaac.RunTimeout,
			PlotTimeout: cfg.Plaac.PlotTimeout,
		}
	}

	sum := orchestrator.New(cfg, deps).Run(ctx, items)

	lg := logpkg.Get().With().Str("component", "summary").Logger()
	lg.Info().
		Int("processed", sum.Processed).
		Int("with_hits", sum.Hits).
		Int("failed", len(sum.Failures)).
		Int("unreadable_pages", sum.DecodeErrors).
		Msg("batch summary")
	for _, f := range sum.Failures {
		lg.Warn().Str("document", f.Document).Str("stage", f.Stage).Err(f.Err).Msg("failed item")
	}
	// Per-document failures are recorded above but never change the exit code.
}

// collectItems resolves the batch work list. In filter-only mode the items
// are pre-existing plot PDFs in the output dir; otherwise they are FASTA
// files from the input dir (all of them, or the -targets subset).
func collectItems(cfg config.Config, targets string, filterOnly bool) ([]orchestrator.Item, error) {
	if filterOnly {
		matches, err := filepath.Glob(filepath.Join(cfg.Dirs.Output, "*_plot.pdf"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", cfg.Dirs.Output, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no *_plot.pdf files found in %s", cfg.Dirs.Output)
		}
		items := make([]orchestrator.Item, 0, len(matches))
		for _, m := range matches {
			name := strings.TrimSuffix(filepath.Base(m), "_plot.pdf")
			items = append(items, orchestrator.Item{Name: name, PlotPDF: m})
		}
		return items, nil
	}

	var fastas []string
	if targets != "" {
		for _, t := range strings.Split(targets, ",") {
			if t = strings.TrimSpace(t); t != "" {
				fastas = append(fastas, filepath.Join(cfg.Dirs.Input, t))
			}
		}
	} else {
		matches, err := filepath.Glob(filepath.Join(cfg.Dirs.Input, "*.fasta"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", cfg.Dirs.Input, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no *.fasta files found in %s", cfg.Dirs.Input)
		}
		fastas = matches
	}

	items := make([]orchestrator.Item, 0, len(fastas))
	for _, f := range fastas {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		items = append(items, orchestrator.Item{Name: name, Fasta: f})
	}
	return items, nil
}
