// Package convert produces static display buffers from raw images: thumbnails, export
// and print snapshots, and the CPU rendering path of the realtime renderer.
package convert

import (
	"errors"
	"fmt"

	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/wl"
)

var (
	// ErrInvalidImage is returned for missing pixels, zero dimensions or an undersized buffer
	ErrInvalidImage = errors.New("invalid image")
	// ErrUnsupportedFormat is returned for photometric kinds other than monochrome and RGB
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ToDisplay renders img with window w and palette kind.
//
// RGB sources are copied verbatim and ignore w and kind. Monochrome sources are windowed
// (inverted for MONOCHROME1) into Gray8 when kind is Grayscale, or into RGB24 through the
// palette otherwise. On failure the result is nil.
//
// ToDisplay does not read or modify the image's window state, and identical arguments
// always produce identical bytes.
func ToDisplay(img *raw.Image, w wl.WindowLevel, kind palette.Kind) (*DisplayBuffer, error) {
	if err := Check(img); err != nil {
		return nil, err
	}
	if img.IsRGB() {
		return convertRGB(img), nil
	}
	index, err := Indices(img, w)
	if err != nil {
		return nil, err
	}
	if !kind.IsColor() {
		return index, nil
	}
	return applyPalette(index, palette.For(kind)), nil
}

// Check reports why img cannot be converted, or nil
func Check(img *raw.Image) error {
	if img == nil || !img.IsValid() {
		return ErrInvalidImage
	}
	if have, need := len(img.Bytes()), img.ExpectedSize(); have < need {
		return fmt.Errorf("%w: have %d bytes, need %d for %s", ErrInvalidImage, have, need, img)
	}
	switch {
	case img.IsRGB() && img.Photometric() == raw.RGB:
	case !img.IsRGB() && img.Photometric().IsMonochrome():
	default:
		return fmt.Errorf("%w: %s with %d samples per pixel", ErrUnsupportedFormat, img.Photometric(), img.SamplesPerPixel())
	}
	return nil
}

// Indices windows a monochrome image into a Gray8 buffer of 8-bit palette indices.
// The indices depend only on the samples, w and the photometric inversion, never on a palette.
func Indices(img *raw.Image, w wl.WindowLevel) (*DisplayBuffer, error) {
	if err := Check(img); err != nil {
		return nil, err
	}
	if img.IsRGB() {
		return nil, fmt.Errorf("%w: rgb image has no window indices", ErrUnsupportedFormat)
	}
	view, err := img.Samples()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	d := view.Domain()
	lut := wl.BuildLUT(w.Center, w.Width, d.Min(), d.Max(), img.Photometric().Inverted())

	width, height := img.Width(), img.Height()
	out := newDisplayBuffer(width, height, FormatGray8)
	for y := 0; y < height; y++ {
		row := out.Row(y)
		base := y * width
		for x := range row {
			row[x] = lut.Table[view.At(base+x)-lut.Min]
		}
	}
	return out, nil
}

func applyPalette(index *DisplayBuffer, tbl palette.Table) *DisplayBuffer {
	out := newDisplayBuffer(index.Width, index.Height, FormatRGB24)
	for y := 0; y < index.Height; y++ {
		src, dst := index.Row(y), out.Row(y)
		for x, v := range src {
			c := tbl[v]
			dst[x*3+0] = c[0]
			dst[x*3+1] = c[1]
			dst[x*3+2] = c[2]
		}
	}
	return out
}

func convertRGB(img *raw.Image) *DisplayBuffer {
	width, height := img.Width(), img.Height()
	out := newDisplayBuffer(width, height, FormatRGB24)
	src := img.Bytes()
	rowBytes := width * 3
	for y := 0; y < height; y++ {
		copy(out.Row(y), src[y*rowBytes:(y+1)*rowBytes])
	}
	return out
}
