package realtime

import (
	"fmt"
	"math"

	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/wl"
)

// ShaderBackend evaluates the windowing fragment stage per viewport pixel against
// unsigned normalized textures, the way a programmable pipeline would.
type ShaderBackend struct {
	MaxTextureSize int

	ready  bool
	sample *SampleTexture
	lut    *PaletteTexture
}

var _ Backend = (*ShaderBackend)(nil)

// NewShaderBackend returns a backend limited to maxTextureSize texels per dimension
func NewShaderBackend(maxTextureSize int) *ShaderBackend {
	return &ShaderBackend{MaxTextureSize: maxTextureSize}
}

func (b *ShaderBackend) Name() string { return "shader" }

func (b *ShaderBackend) Init() error {
	if b.MaxTextureSize <= 0 {
		b.MaxTextureSize = DefaultMaxTextureSize
	}
	b.ready = true
	return nil
}

func (b *ShaderBackend) UploadImage(img *raw.Image) error {
	if !b.ready {
		return ErrNotReady
	}
	tex, err := NewSampleTexture(img, b.MaxTextureSize)
	if err != nil {
		return err
	}
	b.sample = tex
	return nil
}

func (b *ShaderBackend) UploadPalette(tbl palette.Table) error {
	if !b.ready {
		return ErrNotReady
	}
	b.lut = NewPaletteTexture(tbl)
	return nil
}

// Draw clears dst and shades every viewport pixel covered by the image
func (b *ShaderBackend) Draw(u Uniforms, dst *Frame) error {
	if !b.ready {
		return ErrNotReady
	}
	if b.sample == nil {
		return ErrNoImage
	}
	if u.UsePalette && b.lut == nil {
		return fmt.Errorf("draw: palette requested but not uploaded: %w", ErrNotReady)
	}
	dst.Clear()
	tex := b.sample
	p := u.View.layout(dst.Width, dst.Height, tex.Width, tex.Height)
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			sx, sy, ok := p.source(x, y)
			if !ok {
				continue
			}
			r, g, bl := b.shade(sx, sy, u)
			dst.Set(x, y, r, g, bl)
		}
	}
	return nil
}

// shade is the fragment program for one texel
func (b *ShaderBackend) shade(x, y int, u Uniforms) (r, g, bl uint8) {
	tex := b.sample
	if tex.IsColor() {
		return unorm8(tex.Fetch(x, y, 0)), unorm8(tex.Fetch(x, y, 1)), unorm8(tex.Fetch(x, y, 2))
	}
	t := tex.Fetch(x, y, 0)
	value := math.Round(mix(float64(tex.ValueMin), float64(tex.ValueMax), float64(t)))
	idx := wl.Map(value, u.Center, u.Width, u.Invert)
	if u.UsePalette {
		c := b.lut.TexelFetch(idx)
		return c[0], c[1], c[2]
	}
	return idx, idx, idx
}

// Release drops both textures; the backend must be initialized again before use
func (b *ShaderBackend) Release() {
	b.sample = nil
	b.lut = nil
	b.ready = false
}

// Resident returns the bytes held by uploaded textures
func (b *ShaderBackend) Resident() int {
	n := 0
	if b.sample != nil {
		n += b.sample.Bytes()
	}
	if b.lut != nil {
		n += 256 * 4
	}
	return n
}

func mix(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func unorm8(t float32) uint8 {
	return uint8(math.Round(float64(t) * 255))
}
