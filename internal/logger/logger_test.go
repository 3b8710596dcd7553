package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/local/plaacpipe/internal/config"
)

func TestInitAndGetWriteToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "pipe.log")

	err := Init(config.LoggingConfig{
		Level:      "info",
		File:       file,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, config.AxiomConfig{})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Get().Info().Str("component", "summary").Msg("pipeline started")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "pipeline started") {
		t.Errorf("log file missing message: %q", out)
	}
	if !strings.Contains(out, `"component":"summary"`) {
		t.Errorf("log file missing component field: %q", out)
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pipe.log")

	if err := Init(config.LoggingConfig{Level: "nonsense", File: file}, config.AxiomConfig{}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Get().Info().Msg("info still enabled")
	Get().Debug().Msg("debug suppressed")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "info still enabled") {
		t.Errorf("info event missing after level fallback: %q", out)
	}
	if strings.Contains(out, "debug suppressed") {
		t.Errorf("debug event logged despite info fallback: %q", out)
	}
}
