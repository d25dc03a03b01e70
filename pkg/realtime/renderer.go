// Package realtime renders a raw image into RGBA frames under live window/level, palette
// and view changes. An accelerated Backend does the per-pixel work when it can; otherwise
// the renderer falls back to the CPU converter and keeps going.
package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jpfielding/dicomview.go/pkg/convert"
	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/util"
	"github.com/jpfielding/dicomview.go/pkg/wl"
)

// Option configures a Renderer
type Option func(*Renderer) error

// WithLogger replaces slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) error {
		if l == nil {
			return fmt.Errorf("nil logger")
		}
		r.log = l
		return nil
	}
}

// WithBackend replaces the default ShaderBackend; nil renders with the CPU converter only
func WithBackend(b Backend) Option {
	return func(r *Renderer) error {
		r.backend = b
		r.backendSet = true
		return nil
	}
}

// WithMaxTextureSize limits the default ShaderBackend
func WithMaxTextureSize(n int) Option {
	return func(r *Renderer) error {
		if n <= 0 {
			return fmt.Errorf("max texture size must be positive: %d", n)
		}
		r.maxTexture = n
		return nil
	}
}

// WithSensitivity scales Drag
func WithSensitivity(s wl.Sensitivity) Option {
	return func(r *Renderer) error {
		r.sens = s
		return nil
	}
}

// WithViewLimits replaces DefaultViewLimits
func WithViewLimits(l ViewLimits) Option {
	return func(r *Renderer) error {
		if l.MinZoom <= 0 || l.MaxZoom < l.MinZoom || l.ZoomStep <= 1 {
			return fmt.Errorf("invalid view limits: %+v", l)
		}
		r.limits = l
		return nil
	}
}

// Renderer is a live view of one image. Parameter setters may be called from any
// goroutine and only record the change; Render, SetImage and Close belong to the
// render goroutine and apply the latest recorded parameters.
type Renderer struct {
	log        *slog.Logger
	sens       wl.Sensitivity
	limits     ViewLimits
	maxTexture int
	backend    Backend
	backendSet bool

	updates wl.Queue
	mu      sync.Mutex
	kind    palette.Kind
	view    ViewTransform

	img    *raw.Image
	closed bool

	// accelerated path
	initFailed    bool
	uploadFailed  bool
	initialized   bool
	imageUploaded bool
	paletteLoaded bool
	paletteKind   palette.Kind
	warned        bool

	// cpu path
	cpu      *convert.DisplayBuffer
	cpuDirty bool
	cpuKey   cpuKey

	last *Frame
}

type cpuKey struct {
	w    wl.WindowLevel
	kind palette.Kind
}

// NewRenderer builds a renderer with a ShaderBackend unless WithBackend says otherwise
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		log:        slog.Default(),
		sens:       wl.DefaultSensitivity,
		limits:     DefaultViewLimits,
		maxTexture: DefaultMaxTextureSize,
		kind:       palette.Grayscale,
		view:       Identity(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("renderer option: %w", err)
		}
	}
	if !r.backendSet {
		r.backend = NewShaderBackend(r.maxTexture)
	}
	r.log = r.log.With(slog.String("session", util.NewSessionID()))
	return r, nil
}

// Accelerated reports whether the next Render will use the backend
func (r *Renderer) Accelerated() bool {
	return r.backend != nil && !r.initFailed && !r.uploadFailed && !r.closed
}

// Mode names the path in use: the backend name or "cpu"
func (r *Renderer) Mode() string {
	if r.Accelerated() {
		return r.backend.Name()
	}
	return "cpu"
}

// Image returns the displayed image, or nil
func (r *Renderer) Image() *raw.Image {
	return r.img
}

// SetImage displays img with its own window state. Setting a different image releases
// the textures of the previous one.
func (r *Renderer) SetImage(img *raw.Image) error {
	if r.closed {
		return ErrClosed
	}
	if err := convert.Check(img); err != nil {
		return err
	}
	if img == r.img {
		return nil
	}
	if r.img != nil {
		r.updates.Drain(r.img.Window())
	}
	r.releaseBackend()
	r.img = img
	r.uploadFailed = false
	r.cpu = nil
	r.cpuDirty = true
	r.last = nil
	r.log.Debug("image set",
		slog.String("image", img.String()),
		slog.String("window", img.Window().Current().String()))
	return nil
}

// SetWindowLevel records a new current window
func (r *Renderer) SetWindowLevel(w wl.WindowLevel) { r.updates.Push(wl.SetTo(w)) }

// SetCenter records a brightness change
func (r *Renderer) SetCenter(center float64) { r.updates.Push(wl.CenterTo(center)) }

// SetWidth records a contrast change
func (r *Renderer) SetWidth(width float64) { r.updates.Push(wl.WidthTo(width)) }

// Drag records a pointer drag; dx widens the window and dy lowers the center
func (r *Renderer) Drag(dx, dy float64) { r.updates.Push(wl.DragBy(dx, dy, r.sens)) }

// ResetWindowLevel records a reset to the image's default window
func (r *Renderer) ResetWindowLevel() { r.updates.Push(wl.ResetTo()) }

// SetPalette records the palette for the next frame
func (r *Renderer) SetPalette(k palette.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kind = k
}

// Palette returns the recorded palette
func (r *Renderer) Palette() palette.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kind
}

// SetView records a view transform
func (r *Renderer) SetView(v ViewTransform) {
	r.UpdateView(func(ViewTransform) ViewTransform { return v })
}

// UpdateView records fn applied to the latest recorded view
func (r *Renderer) UpdateView(fn func(ViewTransform) ViewTransform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = fn(r.view)
}

// View returns the recorded view transform
func (r *Renderer) View() ViewTransform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// ZoomIn steps the zoom up within the configured limits
func (r *Renderer) ZoomIn() {
	r.UpdateView(func(v ViewTransform) ViewTransform { return v.ZoomIn(r.limits) })
}

// ZoomOut steps the zoom down within the configured limits
func (r *Renderer) ZoomOut() {
	r.UpdateView(func(v ViewTransform) ViewTransform { return v.ZoomOut(r.limits) })
}

// Wheel zooms by the wheel factor and recenters
func (r *Renderer) Wheel(delta int) {
	r.UpdateView(func(v ViewTransform) ViewTransform { return v.Wheel(delta, r.limits) })
}

// Pan moves the image by viewport pixels
func (r *Renderer) Pan(dx, dy float64) {
	r.UpdateView(func(v ViewTransform) ViewTransform { return v.PanBy(dx, dy) })
}

// Window returns the current window of the displayed image, without pending updates
func (r *Renderer) Window() (wl.WindowLevel, bool) {
	if r.img == nil {
		return wl.WindowLevel{}, false
	}
	return r.img.Window().Current(), true
}

// Render draws the image into a vw x vh frame with the latest recorded parameters.
// The returned frame is owned by the renderer until the next Render.
func (r *Renderer) Render(vw, vh int) (*Frame, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.img == nil {
		return nil, ErrNoImage
	}
	if vw <= 0 || vh <= 0 {
		return nil, fmt.Errorf("render: viewport %dx%d", vw, vh)
	}
	w, _ := r.updates.Drain(r.img.Window())

	r.mu.Lock()
	kind := r.kind
	r.view = r.view.Clamp(vw, vh, r.img.Width(), r.img.Height())
	view := r.view
	r.mu.Unlock()

	u := Uniforms{
		Center:     w.Center,
		Width:      w.Width,
		Invert:     r.img.Photometric().Inverted(),
		UsePalette: kind.IsColor() && !r.img.IsRGB(),
		View:       view,
	}
	frame := NewFrame(vw, vh)
	if r.Accelerated() {
		err := r.drawAccelerated(u, kind, frame)
		if err == nil {
			r.last = frame
			return frame, nil
		}
		if r.Accelerated() {
			return nil, fmt.Errorf("render: %w", err)
		}
	}
	if err := r.drawCPU(w, kind, view, frame); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	r.last = frame
	return frame, nil
}

// LastFrame returns the most recent successfully rendered frame, or nil
func (r *Renderer) LastFrame() *Frame {
	return r.last
}

func (r *Renderer) drawAccelerated(u Uniforms, kind palette.Kind, frame *Frame) error {
	if !r.initialized {
		if err := r.backend.Init(); err != nil {
			r.initFailed = true
			r.fallBack("init", err)
			return err
		}
		r.initialized = true
	}
	if !r.imageUploaded {
		if err := r.backend.UploadImage(r.img); err != nil {
			r.uploadFailed = true
			r.fallBack("upload image", err)
			return err
		}
		r.imageUploaded = true
	}
	if u.UsePalette && (!r.paletteLoaded || r.paletteKind != kind) {
		if err := r.backend.UploadPalette(palette.For(kind)); err != nil {
			r.uploadFailed = true
			r.fallBack("upload palette", err)
			return err
		}
		r.paletteLoaded, r.paletteKind = true, kind
	}
	return r.backend.Draw(u, frame)
}

// fallBack switches to the CPU converter. The warning is logged once per renderer.
func (r *Renderer) fallBack(stage string, err error) {
	r.releaseBackend()
	r.cpuDirty = true
	if r.warned {
		r.log.Debug("accelerated rendering unavailable", slog.String("stage", stage), slog.Any("error", err))
		return
	}
	r.warned = true
	r.log.Warn("accelerated rendering unavailable, using CPU converter",
		slog.String("backend", r.backend.Name()),
		slog.String("stage", stage),
		slog.Any("error", err))
}

func (r *Renderer) drawCPU(w wl.WindowLevel, kind palette.Kind, view ViewTransform, frame *Frame) error {
	key := cpuKey{w: w, kind: kind}
	if r.img.IsRGB() {
		key = cpuKey{}
	}
	if r.cpu == nil || r.cpuDirty || r.cpuKey != key {
		buf, err := convert.ToDisplay(r.img, w, kind)
		if err != nil {
			return err
		}
		r.cpu, r.cpuKey, r.cpuDirty = buf, key, false
	}
	blit(r.cpu, view, frame)
	return nil
}

// blit copies buf into frame through the view transform with nearest sampling
func blit(buf *convert.DisplayBuffer, view ViewTransform, frame *Frame) {
	frame.Clear()
	p := view.layout(frame.Width, frame.Height, buf.Width, buf.Height)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			sx, sy, ok := p.source(x, y)
			if !ok {
				continue
			}
			cr, cg, cb := buf.At(sx, sy)
			frame.Set(x, y, cr, cg, cb)
		}
	}
}

func (r *Renderer) releaseBackend() {
	if r.backend != nil && r.initialized {
		r.backend.Release()
	}
	r.initialized = false
	r.imageUploaded = false
	r.paletteLoaded = false
}

// Close releases all textures. Render fails with ErrClosed afterwards; Close is idempotent.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.releaseBackend()
	r.closed = true
	r.img = nil
	r.cpu = nil
	r.last = nil
	r.log.Debug("renderer closed")
	return nil
}
