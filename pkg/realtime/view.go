package realtime

import (
	"fmt"
	"math"
)

// ViewLimits bounds the zoom of a ViewTransform
type ViewLimits struct {
	ZoomStep     float64 `yaml:"zoom_step"`
	MinZoom      float64 `yaml:"min_zoom"`
	MaxZoom      float64 `yaml:"max_zoom"`
	WheelFactor  float64 `yaml:"wheel_factor"`
	WheelMinZoom float64 `yaml:"wheel_min_zoom"`
	WheelMaxZoom float64 `yaml:"wheel_max_zoom"`
}

// DefaultViewLimits are the keyboard and wheel zoom limits of the viewer
var DefaultViewLimits = ViewLimits{
	ZoomStep:     1.2,
	MinZoom:      0.1,
	MaxZoom:      8.0,
	WheelFactor:  1.15,
	WheelMinZoom: 0.1,
	WheelMaxZoom: 10.0,
}

// ViewTransform places the windowed image in the viewport. Zoom is relative to the
// fit-to-viewport scale, pan is in viewport pixels and rotation is in clockwise quarter turns.
// The transform is applied after windowing and never changes pixel values.
type ViewTransform struct {
	Zoom     float64
	PanX     float64
	PanY     float64
	Quarters int
}

// Identity fits the image, centered and unrotated
func Identity() ViewTransform {
	return ViewTransform{Zoom: 1}
}

// Degrees returns the clockwise rotation in degrees, one of 0, 90, 180, 270
func (v ViewTransform) Degrees() int {
	return v.quarters() * 90
}

func (v ViewTransform) quarters() int {
	return ((v.Quarters % 4) + 4) % 4
}

func (v ViewTransform) String() string {
	return fmt.Sprintf("zoom=%.3f pan=(%.1f,%.1f) rot=%d", v.Zoom, v.PanX, v.PanY, v.Degrees())
}

// ZoomIn multiplies the zoom by the step, up to MaxZoom
func (v ViewTransform) ZoomIn(l ViewLimits) ViewTransform {
	v.Zoom = math.Min(l.MaxZoom, v.Zoom*l.ZoomStep)
	return v
}

// ZoomOut divides the zoom by the step, down to MinZoom
func (v ViewTransform) ZoomOut(l ViewLimits) ViewTransform {
	v.Zoom = math.Max(l.MinZoom, v.Zoom/l.ZoomStep)
	return v
}

// Wheel zooms by the wheel factor in the direction of delta and recenters the image
func (v ViewTransform) Wheel(delta int, l ViewLimits) ViewTransform {
	switch {
	case delta > 0:
		v.Zoom = math.Min(v.Zoom*l.WheelFactor, l.WheelMaxZoom)
	case delta < 0:
		v.Zoom = math.Max(v.Zoom/l.WheelFactor, l.WheelMinZoom)
	}
	v.PanX, v.PanY = 0, 0
	return v
}

// RotateCW turns the image 90 degrees clockwise
func (v ViewTransform) RotateCW() ViewTransform {
	v.Quarters = (v.quarters() + 1) % 4
	return v
}

// RotateCCW turns the image 90 degrees counter-clockwise
func (v ViewTransform) RotateCCW() ViewTransform {
	v.Quarters = (v.quarters() + 3) % 4
	return v
}

// Fit resets zoom and pan, keeping the rotation
func (v ViewTransform) Fit() ViewTransform {
	v.Zoom, v.PanX, v.PanY = 1, 0, 0
	return v
}

// PanBy moves the image; the offset is clamped when the view is laid out
func (v ViewTransform) PanBy(dx, dy float64) ViewTransform {
	v.PanX += dx
	v.PanY += dy
	return v
}

// Clamp limits the pan so the image cannot be dragged past its edges in a viewport of
// vw x vh showing an image of iw x ih. Pan is only possible along an axis where the
// scaled image is larger than the viewport.
func (v ViewTransform) Clamp(vw, vh, iw, ih int) ViewTransform {
	p := v.layout(vw, vh, iw, ih)
	maxX := math.Max(0, (p.scaledW-float64(vw))/2)
	maxY := math.Max(0, (p.scaledH-float64(vh))/2)
	v.PanX = math.Max(-maxX, math.Min(maxX, v.PanX))
	v.PanY = math.Max(-maxY, math.Min(maxY, v.PanY))
	return v
}

// placement is a laid out view: viewport pixel -> rotated image -> source pixel
type placement struct {
	scale            float64
	originX, originY float64
	scaledW, scaledH float64
	iw, ih           int
	rw, rh           int
	quarters         int
}

// layout computes the placement without clamping the pan
func (v ViewTransform) layout(vw, vh, iw, ih int) placement {
	q := v.quarters()
	rw, rh := iw, ih
	if q%2 == 1 {
		rw, rh = ih, iw
	}
	zoom := v.Zoom
	if zoom <= 0 || math.IsNaN(zoom) {
		zoom = 1
	}
	fit := 1.0
	if rw > 0 && rh > 0 {
		fit = math.Min(float64(vw)/float64(rw), float64(vh)/float64(rh))
	}
	p := placement{
		scale:    fit * zoom,
		iw:       iw,
		ih:       ih,
		rw:       rw,
		rh:       rh,
		quarters: q,
	}
	p.scaledW = float64(rw) * p.scale
	p.scaledH = float64(rh) * p.scale
	p.originX = (float64(vw)-p.scaledW)/2 + v.PanX
	p.originY = (float64(vh)-p.scaledH)/2 + v.PanY
	return p
}

// source returns the image pixel sampled (nearest) at the center of viewport pixel
// (px, py), or ok=false when that point falls outside the image.
func (p placement) source(px, py int) (sx, sy int, ok bool) {
	if p.scale <= 0 {
		return 0, 0, false
	}
	rx := (float64(px) + 0.5 - p.originX) / p.scale
	ry := (float64(py) + 0.5 - p.originY) / p.scale
	if rx < 0 || ry < 0 || rx >= float64(p.rw) || ry >= float64(p.rh) {
		return 0, 0, false
	}
	var fx, fy float64
	switch p.quarters {
	case 1:
		fx, fy = ry, float64(p.ih)-rx
	case 2:
		fx, fy = float64(p.iw)-rx, float64(p.ih)-ry
	case 3:
		fx, fy = float64(p.iw)-ry, rx
	default:
		fx, fy = rx, ry
	}
	sx, sy = int(math.Floor(fx)), int(math.Floor(fy))
	if sx < 0 || sy < 0 || sx >= p.iw || sy >= p.ih {
		return 0, 0, false
	}
	return sx, sy, true
}
