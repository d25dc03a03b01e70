package source

import (
	"fmt"
	"math"
	"sort"

	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"gonum.org/v1/gonum/stat"
)

// WindowMode selects how a default window is derived when the source has none
type WindowMode string

const (
	// WindowMinMax spans the smallest to the largest sample
	WindowMinMax WindowMode = "minmax"
	// WindowPercentile spans two sample percentiles, ignoring outliers
	WindowPercentile WindowMode = "percentile"
)

// WindowOptions configures automatic default windows
type WindowOptions struct {
	Mode WindowMode `yaml:"auto"`
	Low  float64    `yaml:"low_percentile"`
	High float64    `yaml:"high_percentile"`
}

// DefaultWindowOptions uses the sample range
var DefaultWindowOptions = WindowOptions{Mode: WindowMinMax, Low: 0.01, High: 0.99}

// Validate rejects unknown modes and percentiles outside 0 <= low < high <= 1
func (o WindowOptions) Validate() error {
	switch o.Mode {
	case WindowMinMax:
		return nil
	case WindowPercentile:
		if o.Low < 0 || o.High > 1 || o.Low >= o.High {
			return fmt.Errorf("percentiles must satisfy 0 <= low < high <= 1: %g, %g", o.Low, o.High)
		}
		return nil
	}
	return fmt.Errorf("unknown window mode %q", o.Mode)
}

// Window derives a default window for img. RGB sources always get {128, 256}.
func (o WindowOptions) Window(img *raw.Image) (wl.WindowLevel, error) {
	if img.IsRGB() {
		return wl.WindowLevel{Center: 128, Width: 256}, nil
	}
	view, err := img.Samples()
	if err != nil {
		return wl.WindowLevel{}, err
	}
	if o.Mode == WindowPercentile {
		return PercentileWindow(view, o.Low, o.High)
	}
	return MinMaxWindow(view), nil
}

// MinMaxWindow spans the first-channel sample range, inclusive
func MinMaxWindow(view raw.SampleView) wl.WindowLevel {
	lo, hi := view.MinMax()
	return wl.FullRange(lo, hi)
}

// PercentileWindow spans the empirical quantiles low and high of the first-channel samples
func PercentileWindow(view raw.SampleView, low, high float64) (wl.WindowLevel, error) {
	if low < 0 || high > 1 || low >= high {
		return wl.WindowLevel{}, fmt.Errorf("percentiles must satisfy 0 <= low < high <= 1: %g, %g", low, high)
	}
	if view.Len() == 0 {
		return wl.WindowLevel{}, fmt.Errorf("percentile window: %w", raw.ErrInvalid)
	}
	x := make([]float64, view.Len())
	for i := range x {
		x[i] = float64(view.At(i))
	}
	sort.Float64s(x)
	lo := stat.Quantile(low, stat.Empirical, x, nil)
	hi := stat.Quantile(high, stat.Empirical, x, nil)
	return wl.FullRange(int(math.Floor(lo)), int(math.Ceil(hi))), nil
}
