package raw

import (
	"fmt"

	"github.com/jpfielding/dicomview.go/pkg/wl"
)

// Builder collects the values an image source supplies and produces an Image in one step.
// Structural problems (bit depth, samples per pixel) fail the build; content problems such
// as an empty or undersized buffer are reported by Image.IsValid and by the converter.
type Builder struct {
	img       Image
	hasWindow bool
	window    wl.WindowLevel
}

// NewBuilder starts an 8-bit unsigned MONOCHROME2 image
func NewBuilder() *Builder {
	return &Builder{img: Image{
		samplesPerPixel:  1,
		bitsAllocated:    8,
		photometric:      Monochrome2,
		rescaleSlope:     1,
		rescaleIntercept: 0,
	}}
}

// Dimensions sets columns and rows
func (b *Builder) Dimensions(width, height uint32) *Builder {
	b.img.width, b.img.height = width, height
	return b
}

// SamplesPerPixel sets 1 (monochrome) or 3 (RGB)
func (b *Builder) SamplesPerPixel(spp uint16) *Builder {
	b.img.samplesPerPixel = spp
	return b
}

// Bits sets Bits Allocated, Bits Stored and High Bit; zero stored/high bit values are derived
func (b *Builder) Bits(allocated, stored, highBit uint16) *Builder {
	b.img.bitsAllocated, b.img.bitsStored, b.img.highBit = allocated, stored, highBit
	return b
}

// Signed sets the Pixel Representation
func (b *Builder) Signed(signed bool) *Builder {
	b.img.signed = signed
	return b
}

// Photometric sets the photometric interpretation
func (b *Builder) Photometric(p Photometric) *Builder {
	b.img.photometric = p
	return b
}

// Data sets the borrowed little-endian sample buffer
func (b *Builder) Data(data []byte) *Builder {
	b.img.data = data
	return b
}

// Rescale sets the modality rescale slope and intercept
func (b *Builder) Rescale(slope, intercept float64) *Builder {
	b.img.rescaleSlope, b.img.rescaleIntercept = slope, intercept
	return b
}

// Description attaches free text
func (b *Builder) Description(s string) *Builder {
	b.img.description = s
	return b
}

// DefaultWindow sets the window the image opens with and resets to
func (b *Builder) DefaultWindow(w wl.WindowLevel) *Builder {
	b.window, b.hasWindow = w, true
	return b
}

// Build validates the structure and returns the image.
// Without an explicit default window, monochrome images open on their full sample domain
// and RGB images on {128, 256}.
func (b *Builder) Build() (*Image, error) {
	img := b.img
	if img.samplesPerPixel != 1 && img.samplesPerPixel != 3 {
		return nil, fmt.Errorf("%w: samples per pixel %d", ErrInvalid, img.samplesPerPixel)
	}
	domain, err := DomainFor(img.bitsAllocated, img.signed)
	if err != nil {
		return nil, err
	}
	if img.samplesPerPixel == 3 && domain != DomainU8 {
		return nil, fmt.Errorf("%w: rgb with %d bits allocated", ErrUnsupportedBitDepth, img.bitsAllocated)
	}
	img.domain = domain
	if domain == DomainU8 {
		img.signed = false
	}
	if img.bitsStored == 0 || img.bitsStored > img.bitsAllocated {
		img.bitsStored = img.bitsAllocated
	}
	if img.highBit == 0 || img.highBit >= img.bitsAllocated {
		img.highBit = img.bitsStored - 1
	}

	def := b.window
	if !b.hasWindow {
		if img.samplesPerPixel == 3 {
			def = wl.WindowLevel{Center: 128, Width: 256}
		} else {
			def = wl.FullRange(domain.Min(), domain.Max())
		}
	}
	img.window = wl.NewState(def)
	return &img, nil
}
