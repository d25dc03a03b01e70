package realtime

import (
	"errors"
	"image"

	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
)

var (
	// ErrClosed is returned by Render after Close
	ErrClosed = errors.New("renderer closed")
	// ErrTextureTooLarge is returned when an image dimension exceeds the backend's texture limit
	ErrTextureTooLarge = errors.New("texture too large")
	// ErrNoImage is returned by Render before an image is set
	ErrNoImage = errors.New("no image")
	// ErrNotReady is returned by a backend used before Init or after Release
	ErrNotReady = errors.New("backend not ready")
)

// Uniforms are the per-frame scalars of the windowing stage
type Uniforms struct {
	Center     float64
	Width      float64
	Invert     bool
	UsePalette bool
	View       ViewTransform
}

// Backend is an accelerated rendering stage. A backend holds at most one sample texture
// and one palette texture; uploading replaces the previous one.
type Backend interface {
	Name() string
	Init() error
	UploadImage(img *raw.Image) error
	UploadPalette(tbl palette.Table) error
	Draw(u Uniforms, dst *Frame) error
	Release()
}

// Frame is an RGBA8 render target. Viewport areas not covered by the image are opaque black.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewFrame allocates a cleared frame
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Pix:    make([]byte, width*height*4),
	}
}

// Clear fills the frame with opaque black
func (f *Frame) Clear() {
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = 0, 0, 0, 0xFF
	}
}

// Set writes an opaque pixel
func (f *Frame) Set(x, y int, r, g, b uint8) {
	o := y*f.Stride + x*4
	f.Pix[o], f.Pix[o+1], f.Pix[o+2], f.Pix[o+3] = r, g, b, 0xFF
}

// At reads back the colour at (x, y)
func (f *Frame) At(x, y int) (r, g, b, a uint8) {
	o := y*f.Stride + x*4
	return f.Pix[o], f.Pix[o+1], f.Pix[o+2], f.Pix[o+3]
}

// Image wraps the frame without copying
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{Pix: f.Pix, Stride: f.Stride, Rect: image.Rect(0, 0, f.Width, f.Height)}
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	out := *f
	out.Pix = append([]byte(nil), f.Pix...)
	return &out
}
