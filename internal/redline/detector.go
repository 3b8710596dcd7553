// Package redline decides whether the red score trace on a rendered PLAAC
// plot page reaches the top of its panel. A trace pinned to the top of the
// panel means the score maxed out, which is what the filtered report keeps.
package redline

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/local/plaacpipe/internal/config"
)

// DecodeError means a page raster could not be loaded or holds no pixels.
// The page is treated as non-positive, but callers must surface the error so
// "no signal" stays distinguishable from "could not evaluate".
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify reports whether the image holds a red trace pixel within the
// boundary tolerance of the region of interest. Pure function of the image
// and the profile; safe to call concurrently.
func Classify(img image.Image, p config.DetectionProfile) bool {
	roi := cropRect(img.Bounds(), p)
	if roi.Empty() {
		return false
	}

	// A page is positive iff a red pixel lies in the first EdgeTolerance+1
	// rows of the crop, so rows below that never need scanning.
	lastRow := roi.Min.Y + p.EdgeTolerance
	if lastRow >= roi.Max.Y {
		lastRow = roi.Max.Y - 1
	}

	for y := roi.Min.Y; y <= lastRow; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r, g, b := int(r16>>8), int(g16>>8), int(b16>>8)
			dom := r - g
			if b > g {
				dom = r - b
			}
			if dom > p.RedThreshold {
				return true
			}
		}
	}
	return false
}

// ClassifyFile decodes the raster at path and classifies it.
func ClassifyFile(path string, p config.DetectionProfile) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		// Rasters are PNG by contract, but fall back to the registered
		// decoders before giving up.
		if _, serr := f.Seek(0, 0); serr == nil {
			img, _, err = image.Decode(f)
		}
		if err != nil {
			return false, &DecodeError{Path: path, Err: err}
		}
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return false, &DecodeError{Path: path, Err: fmt.Errorf("zero-dimension image")}
	}
	return Classify(img, p), nil
}

// cropRect resolves the profile against the actual image bounds.
func cropRect(b image.Rectangle, p config.DetectionProfile) image.Rectangle {
	var roi image.Rectangle
	switch p.Mode {
	case "fixed":
		roi = image.Rect(p.PixelLeft, p.PixelTop, p.PixelRight, p.PixelBottom)
	default: // fractional
		w, h := b.Dx(), b.Dy()
		roi = image.Rect(
			b.Min.X+int(float64(w)*p.Left),
			b.Min.Y+int(float64(h)*p.Top),
			b.Min.X+int(float64(w)*p.Right),
			b.Min.Y+int(float64(h)*p.Bottom),
		)
	}
	return roi.Intersect(b)
}
