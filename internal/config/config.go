package config

import (
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// DirsConfig holds the five working directories of the pipeline.
type DirsConfig struct {
    Tools    string // plaac.jar + plaac_plot.r live here
    Input    string // source FASTA files
    Output   string // per-FASTA analysis text + plot PDFs
    Filtered string // filtered PDFs (only documents with hits)
    Temp     string // transient per-page rasters
}

// RasterConfig controls page rendering.
type RasterConfig struct {
    Backend  string // "fitz" (in-process) or "pdftoppm" (external)
    DPI      int
    MaxWidth int // downscale rendered pages wider than this; 0 disables
    Timeout  time.Duration
}

// PlaacConfig controls the external analysis tools.
type PlaacConfig struct {
    JarName        string
    PlotScript     string
    RunTimeout     time.Duration
    PlotTimeout    time.Duration
}

// WorkerConfig defines batch behavior.
type WorkerConfig struct {
    PageConcurrency int
}

// Config is the top-level configuration, built once at startup and never
// mutated afterwards.
type Config struct {
    Dirs        DirsConfig
    Raster      RasterConfig
    Plaac       PlaacConfig
    Worker      WorkerConfig
    Detection   DetectionProfile
    Logging     LoggingConfig
    Axiom       AxiomConfig
    MetricsAddr string
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    base, err := os.Getwd()
    if err != nil {
        base = "."
    }

    cfg.Dirs = DirsConfig{
        Tools:    getEnv("PLAAC_TOOLS_DIR", filepath.Join(base, "plaac")),
        Input:    getEnv("PLAAC_INPUT_DIR", filepath.Join(base, "inputs")),
        Output:   getEnv("PLAAC_OUTPUT_DIR", filepath.Join(base, "outputs")),
        Filtered: getEnv("PLAAC_FILTERED_DIR", filepath.Join(base, "redline_max_detected")),
        Temp:     getEnv("PLAAC_TEMP_DIR", filepath.Join(base, "temp_pdf_pages")),
    }

    cfg.Raster = RasterConfig{
        Backend:  getEnv("RASTER_BACKEND", "fitz"),
        DPI:      parseInt(getEnv("RASTER_DPI", "150"), 150),
        MaxWidth: parseInt(getEnv("RASTER_MAX_WIDTH", "0"), 0),
        Timeout:  parseDuration(getEnv("RASTER_TIMEOUT", "120s"), 120*time.Second),
    }

    cfg.Plaac = PlaacConfig{
        JarName:     getEnv("PLAAC_JAR", "plaac.jar"),
        PlotScript:  getEnv("PLAAC_PLOT_SCRIPT", "plaac_plot.r"),
        RunTimeout:  parseDuration(getEnv("PLAAC_RUN_TIMEOUT", "10m"), 10*time.Minute),
        PlotTimeout: parseDuration(getEnv("PLAAC_PLOT_TIMEOUT", "5m"), 5*time.Minute),
    }

    cfg.Worker = WorkerConfig{
        PageConcurrency: parseInt(getEnv("PAGE_CONCURRENCY", "1"), 1),
    }

    cfg.Detection = DefaultDetectionProfile()

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/plaacpipe.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_plaacpipe",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

    return cfg
}

// ApplyDirOverride applies the single comma-separated directory override
// "tools,input,output,filtered,temp". Empty fields keep their defaults, so
// ",,myout" overrides only the output directory.
func (c *Config) ApplyDirOverride(s string) error {
    s = strings.TrimSpace(s)
    if s == "" {
        return nil
    }
    parts := strings.Split(s, ",")
    if len(parts) > 5 {
        return fmt.Errorf("directory override has %d fields, want at most 5 (tools,input,output,filtered,temp)", len(parts))
    }
    dst := []*string{&c.Dirs.Tools, &c.Dirs.Input, &c.Dirs.Output, &c.Dirs.Filtered, &c.Dirs.Temp}
    for i, p := range parts {
        if p = strings.TrimSpace(p); p != "" {
            *dst[i] = p
        }
    }
    return nil
}

// EnsureDirs creates all five working directories if absent.
func (c *Config) EnsureDirs() error {
    for _, d := range []string{c.Dirs.Tools, c.Dirs.Input, c.Dirs.Output, c.Dirs.Filtered, c.Dirs.Temp} {
        if err := os.MkdirAll(d, 0o755); err != nil {
            return fmt.Errorf("create dir %s: %w", d, err)
        }
    }
    return nil
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
