package config

import (
    "fmt"
    "os"

    "gopkg.in/yaml.v3"
)

// DetectionProfile describes the region-of-interest policy used to decide
// whether a plotted trace reaches the top of a page's score panel. Two
// variants exist historically and they are not interchangeable: the
// fractional crop tolerates a red pixel anywhere in the first rows of the
// crop, while the fixed-pixel crop demands one exactly on the crop's top row.
type DetectionProfile struct {
    Mode string `yaml:"mode"` // "fractional" or "fixed"

    // Fractional crop bounds, relative to image width/height.
    Top    float64 `yaml:"top"`
    Bottom float64 `yaml:"bottom"`
    Left   float64 `yaml:"left"`
    Right  float64 `yaml:"right"`

    // Fixed-pixel crop bounds, used when Mode == "fixed".
    PixelTop    int `yaml:"pixel_top"`
    PixelBottom int `yaml:"pixel_bottom"`
    PixelLeft   int `yaml:"pixel_left"`
    PixelRight  int `yaml:"pixel_right"`

    // EdgeTolerance is the number of crop rows past the top edge that still
    // count as "touching". The fixed variant uses 0 (row 0 only).
    EdgeTolerance int `yaml:"edge_tolerance"`

    // RedThreshold is the minimum red dominance (red - max(green, blue))
    // for a pixel to count as part of the trace.
    RedThreshold int `yaml:"red_threshold"`
}

// DefaultDetectionProfile is the fractional variant tuned for PLAAC plot
// renderings: top quarter of the page, trimmed of the outer 5% margins.
func DefaultDetectionProfile() DetectionProfile {
    return DetectionProfile{
        Mode:          "fractional",
        Top:           0.0,
        Bottom:        0.25,
        Left:          0.05,
        Right:         0.95,
        EdgeTolerance: 5,
        RedThreshold:  30,
    }
}

// LoadDetectionProfile reads a YAML profile from path, filling unset fields
// from the default profile.
func LoadDetectionProfile(path string) (DetectionProfile, error) {
    p := DefaultDetectionProfile()
    data, err := os.ReadFile(path)
    if err != nil {
        return p, fmt.Errorf("read detection profile: %w", err)
    }
    if err := yaml.Unmarshal(data, &p); err != nil {
        return p, fmt.Errorf("parse detection profile %s: %w", path, err)
    }
    if err := p.Validate(); err != nil {
        return p, err
    }
    return p, nil
}

// Validate rejects profiles that cannot describe a crop.
func (p DetectionProfile) Validate() error {
    switch p.Mode {
    case "fractional":
        if p.Top < 0 || p.Bottom > 1 || p.Top >= p.Bottom {
            return fmt.Errorf("detection profile: fractional rows [%v,%v) out of range", p.Top, p.Bottom)
        }
        if p.Left < 0 || p.Right > 1 || p.Left >= p.Right {
            return fmt.Errorf("detection profile: fractional cols [%v,%v) out of range", p.Left, p.Right)
        }
    case "fixed":
        if p.PixelTop >= p.PixelBottom || p.PixelLeft >= p.PixelRight {
            return fmt.Errorf("detection profile: empty fixed crop")
        }
    default:
        return fmt.Errorf("detection profile: unknown mode %q", p.Mode)
    }
    if p.EdgeTolerance < 0 {
        return fmt.Errorf("detection profile: negative edge tolerance")
    }
    if p.RedThreshold < 0 || p.RedThreshold > 255 {
        return fmt.Errorf("detection profile: red threshold %d out of [0,255]", p.RedThreshold)
    }
    return nil
}
