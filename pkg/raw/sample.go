package raw

import (
	"encoding/binary"
	"fmt"
)

// Domain is the integer range a stored sample can take, resolved once per image
type Domain int

const (
	DomainU8 Domain = iota
	DomainU16
	DomainS16
)

// DomainFor resolves the sample domain from Bits Allocated and Pixel Representation.
// 8-bit samples are always treated as unsigned.
func DomainFor(bitsAllocated uint16, signed bool) (Domain, error) {
	switch bitsAllocated {
	case 8:
		return DomainU8, nil
	case 16:
		if signed {
			return DomainS16, nil
		}
		return DomainU16, nil
	}
	return 0, fmt.Errorf("%w: bits allocated %d", ErrUnsupportedBitDepth, bitsAllocated)
}

// Min returns the smallest representable sample
func (d Domain) Min() int {
	if d == DomainS16 {
		return -32768
	}
	return 0
}

// Max returns the largest representable sample
func (d Domain) Max() int {
	switch d {
	case DomainU16:
		return 65535
	case DomainS16:
		return 32767
	}
	return 255
}

// BytesPerSample returns the storage width of one sample
func (d Domain) BytesPerSample() int {
	if d == DomainU8 {
		return 1
	}
	return 2
}

func (d Domain) String() string {
	switch d {
	case DomainU16:
		return "u16"
	case DomainS16:
		return "s16"
	}
	return "u8"
}

// SampleView is a typed, read-only view over little-endian sample bytes.
// It never copies the underlying buffer.
type SampleView struct {
	domain Domain
	spp    int
	data   []byte
	count  int
}

// NewSampleView wraps data holding count pixels of spp samples each
func NewSampleView(data []byte, count, spp int, domain Domain) (SampleView, error) {
	need := count * spp * domain.BytesPerSample()
	if count < 0 || spp <= 0 || len(data) < need {
		return SampleView{}, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(data), need)
	}
	return SampleView{domain: domain, spp: spp, data: data, count: count}, nil
}

// Domain returns the sample domain
func (v SampleView) Domain() Domain {
	return v.domain
}

// Len returns the number of pixels
func (v SampleView) Len() int {
	return v.count
}

// SamplesPerPixel returns 1 for monochrome and 3 for RGB views
func (v SampleView) SamplesPerPixel() int {
	return v.spp
}

// Sample returns sample s of pixel i
func (v SampleView) Sample(i, s int) int {
	idx := i*v.spp + s
	switch v.domain {
	case DomainU16:
		return int(binary.LittleEndian.Uint16(v.data[idx*2:]))
	case DomainS16:
		return int(int16(binary.LittleEndian.Uint16(v.data[idx*2:])))
	}
	return int(v.data[idx])
}

// At returns the first sample of pixel i, the intensity for monochrome views
func (v SampleView) At(i int) int {
	return v.Sample(i, 0)
}

// RGB returns the three samples of pixel i for an 8-bit RGB view
func (v SampleView) RGB(i int) (r, g, b uint8) {
	if v.domain != DomainU8 || v.spp < 3 {
		x := v.At(i)
		return uint8(x), uint8(x), uint8(x)
	}
	o := i * v.spp
	return v.data[o], v.data[o+1], v.data[o+2]
}

// MinMax returns the smallest and largest first-channel samples
func (v SampleView) MinMax() (lo, hi int) {
	if v.count == 0 {
		return 0, 0
	}
	lo, hi = v.At(0), v.At(0)
	for i := 1; i < v.count; i++ {
		x := v.At(i)
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
