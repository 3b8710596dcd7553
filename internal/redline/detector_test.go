package redline

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/local/plaacpipe/internal/config"
)

// whitePage builds an opaque white RGBA image.
func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func TestClassifyFractionalBoundary(t *testing.T) {
	// Default profile on a 200x200 page: crop is rows [0,50), cols [10,190),
	// tolerance rows 0..5 of the crop.
	p := config.DefaultDetectionProfile()
	red := color.RGBA{R: 255, A: 255}

	tests := []struct {
		name string
		at   image.Point
		want bool
	}{
		{"red at row 0", image.Pt(100, 0), true},
		{"red exactly at tolerance edge row 5", image.Pt(100, 5), true},
		{"red just past tolerance row 6", image.Pt(100, 6), false},
		{"red below the crop", image.Pt(100, 120), false},
		{"red left of the crop", image.Pt(4, 2), false},
		{"red right of the crop", image.Pt(195, 2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := whitePage(200, 200)
			img.Set(tt.at.X, tt.at.Y, red)
			if got := Classify(img, p); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyRedDominanceThreshold(t *testing.T) {
	p := config.DefaultDetectionProfile()

	tests := []struct {
		name string
		c    color.RGBA
		want bool
	}{
		{"dominance exactly at threshold", color.RGBA{R: 130, G: 100, B: 100, A: 255}, false},
		{"dominance one past threshold", color.RGBA{R: 131, G: 100, B: 100, A: 255}, true},
		{"pure red", color.RGBA{R: 255, A: 255}, true},
		{"grey has no dominance", color.RGBA{R: 128, G: 128, B: 128, A: 255}, false},
		{"magenta is not red", color.RGBA{R: 255, B: 255, A: 255}, false},
		{"blue channel caps dominance", color.RGBA{R: 200, G: 50, B: 180, A: 255}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := whitePage(200, 200)
			img.Set(100, 2, tt.c)
			if got := Classify(img, p); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyFixedPolicy(t *testing.T) {
	p := config.DetectionProfile{
		Mode:        "fixed",
		PixelTop:    0,
		PixelBottom: 50,
		PixelLeft:   10,
		PixelRight:  190,
		// Exact top-row match only.
		EdgeTolerance: 0,
		RedThreshold:  30,
	}
	red := color.RGBA{R: 255, A: 255}

	img := whitePage(200, 200)
	img.Set(100, 0, red)
	if !Classify(img, p) {
		t.Error("red pixel on row 0 should classify positive under fixed policy")
	}

	img = whitePage(200, 200)
	img.Set(100, 1, red)
	if Classify(img, p) {
		t.Error("red pixel on row 1 should classify negative under fixed policy")
	}
}

func TestClassifyAllWhiteNegative(t *testing.T) {
	if Classify(whitePage(300, 400), config.DefaultDetectionProfile()) {
		t.Error("blank page classified positive")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	img := whitePage(200, 200)
	img.Set(50, 3, color.RGBA{R: 220, G: 40, B: 40, A: 255})
	p := config.DefaultDetectionProfile()
	first := Classify(img, p)
	for i := 0; i < 10; i++ {
		if Classify(img, p) != first {
			t.Fatal("classification changed between identical evaluations")
		}
	}
}

func TestClassifyFile(t *testing.T) {
	dir := t.TempDir()
	p := config.DefaultDetectionProfile()

	path := filepath.Join(dir, "page-001.png")
	img := whitePage(200, 200)
	img.Set(100, 4, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := ClassifyFile(path, p)
	if err != nil {
		t.Fatalf("ClassifyFile failed: %v", err)
	}
	if !got {
		t.Error("expected positive classification")
	}
}

func TestClassifyFileDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	p := config.DefaultDetectionProfile()

	garbage := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(garbage, []byte("not a png at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"garbage bytes", garbage},
		{"missing file", filepath.Join(dir, "nope.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyFile(tt.path, p)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("error is %T, want *DecodeError", err)
			}
			if got {
				t.Error("unreadable page must classify negative")
			}
		})
	}
}
