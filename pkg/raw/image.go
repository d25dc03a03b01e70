// Package raw holds decoded sample buffers as supplied by an image source, together with
// the typed sample access used by the windowing engine.
package raw

import (
	"errors"
	"fmt"

	"github.com/jpfielding/dicomview.go/pkg/wl"
)

var (
	// ErrInvalid is returned when an image lacks pixels, dimensions or a known photometric kind
	ErrInvalid = errors.New("invalid image")
	// ErrShortBuffer is returned when the byte buffer is smaller than the declared dimensions imply
	ErrShortBuffer = errors.New("sample buffer too small")
	// ErrUnsupportedBitDepth is returned for Bits Allocated other than 8 or 16
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
)

// Image is a decoded single-frame image. Everything except the window state is
// immutable once built; the sample bytes are borrowed from the image source and must
// not be modified.
type Image struct {
	width, height   uint32
	samplesPerPixel uint16
	bitsAllocated   uint16
	bitsStored      uint16
	highBit         uint16
	signed          bool
	photometric     Photometric
	data            []byte
	domain          Domain

	rescaleSlope     float64
	rescaleIntercept float64
	description      string

	window *wl.State
}

// Width returns the number of columns
func (img *Image) Width() int { return int(img.width) }

// Height returns the number of rows
func (img *Image) Height() int { return int(img.height) }

// SamplesPerPixel returns 1 or 3
func (img *Image) SamplesPerPixel() int { return int(img.samplesPerPixel) }

// BitsAllocated returns the storage bits per sample
func (img *Image) BitsAllocated() int { return int(img.bitsAllocated) }

// BitsStored returns the significant bits per sample
func (img *Image) BitsStored() int { return int(img.bitsStored) }

// HighBit returns the most significant stored bit
func (img *Image) HighBit() int { return int(img.highBit) }

// IsSigned reports a two's complement Pixel Representation
func (img *Image) IsSigned() bool { return img.signed }

// Photometric returns the photometric interpretation
func (img *Image) Photometric() Photometric { return img.photometric }

// Domain returns the resolved sample domain
func (img *Image) Domain() Domain { return img.domain }

// Bytes returns the borrowed sample buffer
func (img *Image) Bytes() []byte { return img.data }

// Rescale returns the modality rescale slope and intercept
func (img *Image) Rescale() (slope, intercept float64) {
	return img.rescaleSlope, img.rescaleIntercept
}

// Description returns free text supplied by the image source
func (img *Image) Description() string { return img.description }

// Window returns the mutable window/level state of this image
func (img *Image) Window() *wl.State { return img.window }

// IsRGB reports a three-sample colour source
func (img *Image) IsRGB() bool {
	return img.samplesPerPixel == 3
}

// PixelCount returns width*height
func (img *Image) PixelCount() int {
	return int(img.width) * int(img.height)
}

// BytesPerSample returns ceil(bitsAllocated/8)
func (img *Image) BytesPerSample() int {
	return (int(img.bitsAllocated) + 7) / 8
}

// ExpectedSize returns the byte length implied by the declared dimensions
func (img *Image) ExpectedSize() int {
	return img.PixelCount() * int(img.samplesPerPixel) * img.BytesPerSample()
}

// IsValid reports pixels present, positive dimensions and a known photometric kind
func (img *Image) IsValid() bool {
	return img != nil &&
		len(img.data) > 0 &&
		img.width > 0 &&
		img.height > 0 &&
		img.photometric != PhotometricUnknown
}

// Samples returns a typed view over the sample buffer
func (img *Image) Samples() (SampleView, error) {
	return NewSampleView(img.data, img.PixelCount(), int(img.samplesPerPixel), img.domain)
}

func (img *Image) String() string {
	return fmt.Sprintf("%dx%d %s spp=%d bits=%d/%d %s",
		img.width, img.height, img.photometric, img.samplesPerPixel,
		img.bitsStored, img.bitsAllocated, img.domain)
}
