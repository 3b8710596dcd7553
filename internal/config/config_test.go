package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDirOverride(t *testing.T) {
	base := Config{Dirs: DirsConfig{
		Tools:    "tools",
		Input:    "inputs",
		Output:   "outputs",
		Filtered: "filtered",
		Temp:     "temp",
	}}

	tests := []struct {
		name    string
		in      string
		want    DirsConfig
		wantErr bool
	}{
		{
			"empty keeps defaults",
			"",
			base.Dirs,
			false,
		},
		{
			"full override",
			"a,b,c,d,e",
			DirsConfig{Tools: "a", Input: "b", Output: "c", Filtered: "d", Temp: "e"},
			false,
		},
		{
			"partial override keeps trailing defaults",
			"a,b",
			DirsConfig{Tools: "a", Input: "b", Output: "outputs", Filtered: "filtered", Temp: "temp"},
			false,
		},
		{
			"empty fields keep their defaults",
			",,myout,,",
			DirsConfig{Tools: "tools", Input: "inputs", Output: "myout", Filtered: "filtered", Temp: "temp"},
			false,
		},
		{
			"too many fields",
			"a,b,c,d,e,f",
			base.Dirs,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			err := cfg.ApplyDirOverride(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Dirs != tt.want {
				t.Errorf("dirs = %+v, want %+v", cfg.Dirs, tt.want)
			}
		})
	}
}

func TestDetectionProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DetectionProfile)
		wantErr bool
	}{
		{"default is valid", func(p *DetectionProfile) {}, false},
		{"fixed variant", func(p *DetectionProfile) {
			p.Mode = "fixed"
			p.PixelTop, p.PixelBottom = 0, 50
			p.PixelLeft, p.PixelRight = 10, 190
			p.EdgeTolerance = 0
		}, false},
		{"unknown mode", func(p *DetectionProfile) { p.Mode = "magic" }, true},
		{"inverted rows", func(p *DetectionProfile) { p.Top, p.Bottom = 0.5, 0.2 }, true},
		{"cols out of range", func(p *DetectionProfile) { p.Right = 1.5 }, true},
		{"empty fixed crop", func(p *DetectionProfile) {
			p.Mode = "fixed"
			p.PixelTop, p.PixelBottom = 10, 10
		}, true},
		{"negative tolerance", func(p *DetectionProfile) { p.EdgeTolerance = -1 }, true},
		{"threshold out of range", func(p *DetectionProfile) { p.RedThreshold = 300 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultDetectionProfile()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDetectionProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	data := `
mode: fixed
pixel_top: 0
pixel_bottom: 120
pixel_left: 30
pixel_right: 570
edge_tolerance: 0
red_threshold: 45
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadDetectionProfile(path)
	if err != nil {
		t.Fatalf("LoadDetectionProfile failed: %v", err)
	}
	if p.Mode != "fixed" || p.PixelBottom != 120 || p.RedThreshold != 45 {
		t.Errorf("profile = %+v", p)
	}
	// Fields absent from the file keep their defaults.
	if p.Bottom != 0.25 {
		t.Errorf("unset fractional bound lost its default: %v", p.Bottom)
	}
}

func TestLoadDetectionProfileRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("mode: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDetectionProfile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Dirs: DirsConfig{
		Tools:    filepath.Join(root, "plaac"),
		Input:    filepath.Join(root, "inputs"),
		Output:   filepath.Join(root, "outputs"),
		Filtered: filepath.Join(root, "filtered"),
		Temp:     filepath.Join(root, "temp"),
	}}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, d := range []string{cfg.Dirs.Tools, cfg.Dirs.Input, cfg.Dirs.Output, cfg.Dirs.Filtered, cfg.Dirs.Temp} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created", d)
		}
	}
}
