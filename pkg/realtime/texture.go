package realtime

import (
	"fmt"

	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
)

// DefaultMaxTextureSize is the largest texture dimension a backend accepts unless configured
const DefaultMaxTextureSize = 16384

// TextureFormat is the storage layout of a sample texture
type TextureFormat uint8

const (
	// TextureR8 is one unsigned normalized byte per texel
	TextureR8 TextureFormat = iota
	// TextureR16 is one unsigned normalized 16-bit word per texel
	TextureR16
	// TextureRGB8 is three unsigned normalized bytes per texel
	TextureRGB8
)

func (f TextureFormat) String() string {
	switch f {
	case TextureR16:
		return "R16_UNorm"
	case TextureRGB8:
		return "RGB8_UNorm"
	}
	return "R8_UNorm"
}

// unormMax is the integer that normalizes to 1.0
func (f TextureFormat) unormMax() float32 {
	if f == TextureR16 {
		return 65535
	}
	return 255
}

// SampleTexture holds an image as unsigned normalized texels. Signed 16-bit samples are
// biased by +32768 on upload; ValueMin and ValueMax map t=0 and t=1 back to raw values.
type SampleTexture struct {
	Width    int
	Height   int
	Format   TextureFormat
	ValueMin int
	ValueMax int
	texels   []uint16
}

// NewSampleTexture converts img into texels. It fails with ErrTextureTooLarge when a
// dimension exceeds maxSize.
func NewSampleTexture(img *raw.Image, maxSize int) (*SampleTexture, error) {
	if img == nil || !img.IsValid() {
		return nil, fmt.Errorf("upload: %w", raw.ErrInvalid)
	}
	if img.Width() > maxSize || img.Height() > maxSize {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrTextureTooLarge, img.Width(), img.Height(), maxSize)
	}
	view, err := img.Samples()
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	tex := &SampleTexture{
		Width:    img.Width(),
		Height:   img.Height(),
		ValueMin: 0,
		ValueMax: 255,
	}
	n := view.Len()
	if img.IsRGB() {
		tex.Format = TextureRGB8
		tex.texels = make([]uint16, n*3)
		for i := 0; i < n; i++ {
			r, g, b := view.RGB(i)
			tex.texels[i*3], tex.texels[i*3+1], tex.texels[i*3+2] = uint16(r), uint16(g), uint16(b)
		}
		return tex, nil
	}

	tex.texels = make([]uint16, n)
	switch view.Domain() {
	case raw.DomainU8:
		tex.Format = TextureR8
		for i := 0; i < n; i++ {
			tex.texels[i] = uint16(view.At(i))
		}
	case raw.DomainU16:
		tex.Format = TextureR16
		tex.ValueMax = 65535
		for i := 0; i < n; i++ {
			tex.texels[i] = uint16(view.At(i))
		}
	case raw.DomainS16:
		tex.Format = TextureR16
		tex.ValueMin, tex.ValueMax = -32768, 32767
		for i := 0; i < n; i++ {
			tex.texels[i] = uint16(view.At(i) + 32768)
		}
	}
	return tex, nil
}

// Fetch returns the normalized value of channel c at (x, y)
func (t *SampleTexture) Fetch(x, y, c int) float32 {
	ch := 1
	if t.Format == TextureRGB8 {
		ch = 3
	}
	return float32(t.texels[(y*t.Width+x)*ch+c]) / t.Format.unormMax()
}

// IsColor reports an RGB texture that bypasses windowing
func (t *SampleTexture) IsColor() bool {
	return t.Format == TextureRGB8
}

// Bytes returns the texture's memory footprint
func (t *SampleTexture) Bytes() int {
	if t.Format == TextureR8 || t.Format == TextureRGB8 {
		return len(t.texels)
	}
	return len(t.texels) * 2
}

// PaletteTexture is a 256x1 RGBA8 lookup texture
type PaletteTexture struct {
	texels [256][4]uint8
}

// NewPaletteTexture uploads tbl
func NewPaletteTexture(tbl palette.Table) *PaletteTexture {
	p := &PaletteTexture{}
	for i, c := range tbl {
		p.texels[i] = [4]uint8{c[0], c[1], c[2], 0xFF}
	}
	return p
}

// TexelFetch returns the exact texel at index i
func (p *PaletteTexture) TexelFetch(i uint8) [4]uint8 {
	return p.texels[i]
}
