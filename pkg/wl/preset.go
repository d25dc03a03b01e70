package wl

import (
	"fmt"
	"math"
	"strings"
)

// Preset is a named window, e.g. a clinical viewing window
type Preset struct {
	Window      WindowLevel
	Explanation string
}

// CTPresets are the common CT viewing windows in Hounsfield units.
// Convert them with WindowLevel.ToStored before applying them to stored samples.
var CTPresets = []Preset{
	{Window: WindowLevel{Center: 40, Width: 400}, Explanation: "SOFT_TISSUE"},
	{Window: WindowLevel{Center: 400, Width: 2000}, Explanation: "BONE"},
	{Window: WindowLevel{Center: -600, Width: 1500}, Explanation: "LUNG"},
	{Window: WindowLevel{Center: 50, Width: 350}, Explanation: "BRAIN"},
}

// ToStored converts a window in rescaled units (value = stored*slope + intercept)
// into stored sample units. A zero slope is treated as 1.
func (w WindowLevel) ToStored(slope, intercept float64) WindowLevel {
	if slope == 0 || math.IsNaN(slope) {
		slope = 1
	}
	return New((w.Center-intercept)/slope, w.Width/math.Abs(slope))
}

// FullRange returns the window covering an entire sample domain
func FullRange(domainMin, domainMax int) WindowLevel {
	if domainMax < domainMin {
		domainMin, domainMax = domainMax, domainMin
	}
	width := float64(domainMax) - float64(domainMin) + 1
	return New(float64(domainMin)+width/2.0, width)
}

// FindPreset looks up a CT preset by its explanation, case insensitive
func FindPreset(name string) (Preset, error) {
	for _, p := range CTPresets {
		if strings.EqualFold(p.Explanation, name) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown window preset %q", name)
}
