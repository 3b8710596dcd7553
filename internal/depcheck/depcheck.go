// Package depcheck probes for the external binaries the pipeline shells out
// to. Probing never installs anything; installation is a separate, explicit
// step so a batch run never depends on package-manager side effects.
package depcheck

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// Tool names the pipeline may require.
const (
	Java     = "java"
	Rscript  = "Rscript"
	Pdftoppm = "pdftoppm"
)

var descriptions = map[string]string{
	Java:     "Java runtime (runs plaac.jar)",
	Rscript:  "R (runs plaac_plot.r)",
	Pdftoppm: "Poppler (splits PDFs into PNGs)",
}

// Status reports one tool's availability.
type Status struct {
	Tool        string
	Description string
	Path        string
	OK          bool
}

// Summary is the result of probing a set of tools.
type Summary struct {
	Statuses []Status
}

// Missing lists the probed tools that were not found.
func (s Summary) Missing() []string {
	var out []string
	for _, st := range s.Statuses {
		if !st.OK {
			out = append(out, st.Tool)
		}
	}
	return out
}

// MissingError turns a non-empty missing set into an operator-facing error.
type MissingError struct {
	Tools []string
}

func (e *MissingError) Error() string {
	parts := make([]string, len(e.Tools))
	for i, t := range e.Tools {
		d := descriptions[t]
		if d == "" {
			d = t
		}
		parts[i] = fmt.Sprintf("%s (%s)", t, d)
	}
	return "missing required tools: " + strings.Join(parts, ", ")
}

// Probe checks PATH for each tool. Pure; no side effects.
func Probe(tools []string) Summary {
	var sum Summary
	for _, t := range tools {
		st := Status{Tool: t, Description: descriptions[t]}
		if p, err := exec.LookPath(t); err == nil {
			st.OK = true
			st.Path = p
		}
		sum.Statuses = append(sum.Statuses, st)
	}
	return sum
}

// Require probes and fails if anything is missing.
func Require(tools []string) error {
	sum := Probe(tools)
	for _, st := range sum.Statuses {
		ev := log.Info()
		if !st.OK {
			ev = log.Error()
		}
		ev.Str("tool", st.Tool).Bool("found", st.OK).Str("path", st.Path).Msg("dependency probe")
	}
	if missing := sum.Missing(); len(missing) > 0 {
		return &MissingError{Tools: missing}
	}
	return nil
}

// packages maps a tool to the package that provides it, per platform.
var packages = map[string]map[string]string{
	"linux":  {Java: "default-jre", Rscript: "r-base", Pdftoppm: "poppler-utils"},
	"darwin": {Java: "openjdk", Rscript: "r", Pdftoppm: "poppler"},
}

// Install installs the named tools. Only invoked when the operator asked for
// it explicitly; unsupported platforms get an error, never a fallback.
func Install(ctx context.Context, tools []string) error {
	pkgs, ok := packages[runtime.GOOS]
	if !ok {
		return fmt.Errorf("automatic install unsupported on %s; install manually: %s", runtime.GOOS, strings.Join(tools, ", "))
	}
	for _, t := range tools {
		pkg, ok := pkgs[t]
		if !ok {
			return fmt.Errorf("no known package for %s on %s", t, runtime.GOOS)
		}
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "linux":
			cmd = exec.CommandContext(ctx, "sudo", "apt-get", "install", "-y", pkg)
		case "darwin":
			if _, err := exec.LookPath("brew"); err != nil {
				return fmt.Errorf("homebrew not found; install from https://brew.sh/")
			}
			cmd = exec.CommandContext(ctx, "brew", "install", pkg)
		}
		log.Info().Str("tool", t).Str("package", pkg).Msg("installing dependency")
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("install %s: %w: %s", pkg, err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}
