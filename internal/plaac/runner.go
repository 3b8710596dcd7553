// Package plaac invokes the PLAAC toolchain: the Java scorer that turns a
// FASTA file into per-residue scores, and the R script that plots those
// scores as a one-page-per-sequence PDF report.
package plaac

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner drives the external PLAAC tools from the tools directory, where
// plaac.jar and plaac_plot.r live.
type Runner struct {
	ToolsDir    string
	JarName     string
	PlotScript  string
	RunTimeout  time.Duration
	PlotTimeout time.Duration
}

// Run scores fastaPath and writes the scorer's stdout to outTxt.
func (r *Runner) Run(ctx context.Context, fastaPath, outTxt string) error {
	if err := validateInput(fastaPath); err != nil {
		return fmt.Errorf("plaac input: %w", err)
	}

	out, err := os.Create(outTxt)
	if err != nil {
		return fmt.Errorf("create %s: %w", outTxt, err)
	}
	defer out.Close()

	cmd := exec.Command("java", "-jar", filepath.Join(r.ToolsDir, r.JarName), "-i", fastaPath, "-p", "all")
	cmd.Dir = r.ToolsDir
	cmd.Stdout = out

	if err := runWithTimeout(ctx, cmd, r.RunTimeout); err != nil {
		return fmt.Errorf("plaac scorer: %w", err)
	}
	log.Info().Str("fasta", filepath.Base(fastaPath)).Str("output", outTxt).Msg("PLAAC analysis complete")
	return nil
}

// Plot renders the scorer output at txtPath into a multi-page PDF at outPDF.
func (r *Runner) Plot(ctx context.Context, txtPath, outPDF string) error {
	cmd := exec.Command("Rscript", r.PlotScript, txtPath, outPDF)
	cmd.Dir = r.ToolsDir

	if err := runWithTimeout(ctx, cmd, r.PlotTimeout); err != nil {
		return fmt.Errorf("plaac plot: %w", err)
	}
	if _, err := os.Stat(outPDF); err != nil {
		return fmt.Errorf("plaac plot produced no output: %w", err)
	}
	log.Info().Str("plot", outPDF).Msg("PLAAC plot complete")
	return nil
}

func runWithTimeout(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Str("dir", cmd.Dir).Msg("external command")

	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return fmt.Errorf("timeout after %v", timeout)
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return ctx.Err()
	}
}

func validateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file")
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}
	return nil
}
