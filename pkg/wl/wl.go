// Package wl implements the window/level contrast model: the linear mapping from a raw
// sample value to an 8-bit display intensity, the lookup tables built from it, and the
// interaction state (default/current window, drag, reset) that drives re-rendering.
package wl

import (
	"fmt"
	"math"
)

// MinWidth is the smallest window width any mutator will store
const MinWidth = 1.0

// WindowLevel is a linear contrast mapping centered on Center spanning Width raw units
type WindowLevel struct {
	Center float64 `json:"center" yaml:"center"`
	Width  float64 `json:"width" yaml:"width"`
}

// New returns a window with the width clamped to MinWidth
func New(center, width float64) WindowLevel {
	return WindowLevel{Center: center, Width: width}.Clamped()
}

// Clamped returns a copy whose width is at least MinWidth
func (w WindowLevel) Clamped() WindowLevel {
	if math.IsNaN(w.Width) || w.Width < MinWidth {
		w.Width = MinWidth
	}
	if math.IsNaN(w.Center) {
		w.Center = 0
	}
	return w
}

// Lower returns the raw value at and below which output saturates to 0
func (w WindowLevel) Lower() float64 {
	return w.Center - w.Width/2.0
}

// Upper returns the raw value at and above which output saturates to 255
func (w WindowLevel) Upper() float64 {
	return w.Center + w.Width/2.0
}

func (w WindowLevel) String() string {
	return fmt.Sprintf("C:%g W:%g", w.Center, w.Width)
}

// Map evaluates the window/level transform for a single raw value.
//
// Values at or below the lower bound map to 0, values at or above the upper bound map
// to 255, everything between is scaled by 255/width and truncated. Inversion is applied
// after clamping. A width <= 0 is a blank window and maps everything to 0.
//
// This is the only definition of the transform; lookup tables and the realtime kernel
// both evaluate it.
func Map(v, center, width float64, invert bool) uint8 {
	if width <= 0 {
		return 0
	}
	lower := center - width/2.0
	upper := center + width/2.0

	var out uint8
	switch {
	case v <= lower:
		out = 0
	case v >= upper:
		out = 255
	default:
		scale := 255.0 / width
		scaled := (v - lower) * scale
		if scaled >= 255 {
			out = 255
		} else {
			out = uint8(scaled)
		}
	}
	if invert {
		out = 255 - out
	}
	return out
}
