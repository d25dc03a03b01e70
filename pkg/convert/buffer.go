package convert

import (
	"fmt"
	"image"
	"image/color"

	"github.com/jpfielding/dicomview.go/pkg/util"
)

// Format is the pixel layout of a DisplayBuffer
type Format uint8

const (
	// FormatGray8 is one intensity byte per pixel
	FormatGray8 Format = iota
	// FormatRGB24 is three bytes per pixel, R G B, no alpha
	FormatRGB24
)

// BytesPerPixel returns 1 for Gray8 and 3 for RGB24
func (f Format) BytesPerPixel() int {
	if f == FormatRGB24 {
		return 3
	}
	return 1
}

func (f Format) String() string {
	if f == FormatRGB24 {
		return "rgb24"
	}
	return "gray8"
}

// DisplayBuffer is a displayable frame produced by the converter. Pix is owned by the
// caller; rows start every Stride bytes.
type DisplayBuffer struct {
	Width  int
	Height int
	Format Format
	Stride int
	Pix    []byte
}

func newDisplayBuffer(width, height int, format Format) *DisplayBuffer {
	stride := width * format.BytesPerPixel()
	return &DisplayBuffer{
		Width:  width,
		Height: height,
		Format: format,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// Row returns the bytes of row y
func (b *DisplayBuffer) Row(y int) []byte {
	off := y * b.Stride
	return b.Pix[off : off+b.Width*b.Format.BytesPerPixel()]
}

// At returns the displayed colour at (x, y); gray pixels are expanded to equal channels
func (b *DisplayBuffer) At(x, y int) (r, g, bl uint8) {
	off := y*b.Stride + x*b.Format.BytesPerPixel()
	if b.Format == FormatGray8 {
		v := b.Pix[off]
		return v, v, v
	}
	return b.Pix[off], b.Pix[off+1], b.Pix[off+2]
}

// Image wraps the buffer as an *image.Gray (Gray8) or copies it into an *image.RGBA (RGB24)
func (b *DisplayBuffer) Image() image.Image {
	rect := image.Rect(0, 0, b.Width, b.Height)
	if b.Format == FormatGray8 {
		return &image.Gray{Pix: b.Pix, Stride: b.Stride, Rect: rect}
	}
	out := image.NewRGBA(rect)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			r, g, bl := b.At(x, y)
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: bl, A: 0xFF})
		}
	}
	return out
}

// Fingerprint returns a stable id of the layout and pixel content
func (b *DisplayBuffer) Fingerprint() string {
	return util.ContentUUID(b.Pix, fmt.Sprintf("%dx%d/%s/%d", b.Width, b.Height, b.Format, b.Stride))
}
