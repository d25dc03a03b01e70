package convert

import (
	"encoding/binary"
	"image"
	"math/rand"
	"testing"

	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient16(t *testing.T, width, height int, signed bool, pi raw.Photometric) *raw.Image {
	t.Helper()
	data := make([]byte, width*height*2)
	rng := rand.New(rand.NewSource(int64(width*31 + height)))
	for i := 0; i < width*height; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(rng.Intn(65536)))
	}
	img, err := raw.NewBuilder().
		Dimensions(uint32(width), uint32(height)).
		Bits(16, 16, 15).
		Signed(signed).
		Photometric(pi).
		Data(data).
		Build()
	require.NoError(t, err)
	return img
}

func gray8(t *testing.T, pi raw.Photometric, pix ...byte) *raw.Image {
	t.Helper()
	img, err := raw.NewBuilder().
		Dimensions(uint32(len(pix)), 1).
		Photometric(pi).
		Data(pix).
		Build()
	require.NoError(t, err)
	return img
}

func TestToDisplay_GrayscaleUsesLUT(t *testing.T) {
	img := gradient16(t, 17, 9, true, raw.Monochrome2)
	w := wl.WindowLevel{Center: -200, Width: 3000}
	out, err := ToDisplay(img, w, palette.Grayscale)
	require.NoError(t, err)
	require.Equal(t, FormatGray8, out.Format)
	assert.Equal(t, 17, out.Stride)
	assert.Len(t, out.Pix, 17*9)

	view, err := img.Samples()
	require.NoError(t, err)
	for i := 0; i < view.Len(); i++ {
		want := wl.Map(float64(view.At(i)), w.Center, w.Width, false)
		require.Equal(t, want, out.Pix[i], "pixel %d raw %d", i, view.At(i))
	}
}

func TestToDisplay_Monochrome1Inverts(t *testing.T) {
	img := gray8(t, raw.Monochrome1, 0, 255)
	out, err := ToDisplay(img, wl.WindowLevel{Center: 128, Width: 256}, palette.Grayscale)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.Pix[0])
	assert.InDelta(t, 0, int(out.Pix[1]), 1)
}

func TestToDisplay_Idempotent(t *testing.T) {
	img := gradient16(t, 32, 16, false, raw.Monochrome2)
	w := wl.WindowLevel{Center: 30000, Width: 12000}
	for _, k := range palette.Kinds() {
		a, err := ToDisplay(img, w, k)
		require.NoError(t, err)
		b, err := ToDisplay(img, w, k)
		require.NoError(t, err)
		assert.Equal(t, a.Pix, b.Pix, k.String())
		assert.Equal(t, a.Fingerprint(), b.Fingerprint(), k.String())
		if len(a.Pix) > 0 {
			a.Pix[0] ^= 0xFF
			assert.NotEqual(t, a.Pix[0], b.Pix[0], "buffers must not share storage")
		}
	}
}

func TestToDisplay_PaletteOutput(t *testing.T) {
	img := gradient16(t, 8, 8, false, raw.Monochrome2)
	w := wl.WindowLevel{Center: 32768, Width: 40000}
	out, err := ToDisplay(img, w, palette.Hot)
	require.NoError(t, err)
	require.Equal(t, FormatRGB24, out.Format)
	assert.Equal(t, 24, out.Stride)

	idx, err := Indices(img, w)
	require.NoError(t, err)
	tbl := palette.Generate(palette.Hot)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r, g, b := out.At(x, y)
			assert.Equal(t, tbl[idx.Pix[y*8+x]], [3]uint8{r, g, b})
		}
	}
}

func TestToDisplay_SwitchingPaletteKeepsIndices(t *testing.T) {
	img := gradient16(t, 16, 4, true, raw.Monochrome1)
	w := wl.WindowLevel{Center: 0, Width: 20000}
	gray, err := ToDisplay(img, w, palette.Grayscale)
	require.NoError(t, err)
	hot, err := ToDisplay(img, w, palette.Hot)
	require.NoError(t, err)
	idx, err := Indices(img, w)
	require.NoError(t, err)

	assert.Equal(t, idx.Pix, gray.Pix)
	tbl := palette.Generate(palette.Hot)
	for i, v := range gray.Pix {
		assert.Equal(t, tbl[v][:], hot.Pix[i*3:i*3+3])
	}
}

func TestToDisplay_GrayscalePaletteIsTriple(t *testing.T) {
	img := gray8(t, raw.Monochrome2, 0, 10, 100, 200, 255)
	out, err := ToDisplay(img, wl.WindowLevel{Center: 128, Width: 256}, palette.Grayscale)
	require.NoError(t, err)
	for x := 0; x < 5; x++ {
		r, g, b := out.At(x, 0)
		assert.Equal(t, r, g)
		assert.Equal(t, g, b)
		assert.Equal(t, out.Pix[x], r)
	}
}

func TestToDisplay_RGBBypass(t *testing.T) {
	src := make([]byte, 5*3*3)
	for i := range src {
		src[i] = byte(i * 7)
	}
	img, err := raw.NewBuilder().
		Dimensions(5, 3).
		SamplesPerPixel(3).
		Photometric(raw.RGB).
		Data(src).
		Build()
	require.NoError(t, err)

	for _, k := range []palette.Kind{palette.Grayscale, palette.Hot, palette.Ocean} {
		for _, w := range []wl.WindowLevel{{Center: 0, Width: 1}, {Center: 128, Width: 256}, {Center: -5, Width: -5}} {
			out, err := ToDisplay(img, w, k)
			require.NoError(t, err)
			assert.Equal(t, FormatRGB24, out.Format)
			assert.Equal(t, src, out.Pix)
		}
	}
}

func TestToDisplay_Failures(t *testing.T) {
	short, err := raw.NewBuilder().Dimensions(4, 4).Bits(16, 16, 15).Data(make([]byte, 31)).Build()
	require.NoError(t, err)
	empty, err := raw.NewBuilder().Dimensions(4, 4).Build()
	require.NoError(t, err)
	zero, err := raw.NewBuilder().Dimensions(0, 4).Data([]byte{1}).Build()
	require.NoError(t, err)
	unknown, err := raw.NewBuilder().Dimensions(1, 1).Data([]byte{1}).Photometric(raw.PhotometricUnknown).Build()
	require.NoError(t, err)
	pal, err := raw.NewBuilder().Dimensions(1, 1).Data([]byte{1}).Photometric(raw.PaletteColor).Build()
	require.NoError(t, err)
	rgbMono, err := raw.NewBuilder().Dimensions(1, 1).Data([]byte{1}).Photometric(raw.RGB).Build()
	require.NoError(t, err)

	tests := []struct {
		name string
		img  *raw.Image
		want error
	}{
		{"nil", nil, ErrInvalidImage},
		{"short buffer", short, ErrInvalidImage},
		{"empty", empty, ErrInvalidImage},
		{"zero width", zero, ErrInvalidImage},
		{"unknown photometric", unknown, ErrInvalidImage},
		{"palette color", pal, ErrUnsupportedFormat},
		{"rgb photometric with one sample", rgbMono, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ToDisplay(tt.img, wl.WindowLevel{Center: 128, Width: 256}, palette.Hot)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestToDisplay_DoesNotTouchWindowState(t *testing.T) {
	img := gray8(t, raw.Monochrome2, 1, 2, 3)
	before := img.Window().Current()
	_, err := ToDisplay(img, wl.WindowLevel{Center: 2, Width: 2}, palette.Grayscale)
	require.NoError(t, err)
	assert.Equal(t, before, img.Window().Current())
}

func TestDisplayBuffer_Image(t *testing.T) {
	img := gray8(t, raw.Monochrome2, 0, 128, 255)
	w := wl.WindowLevel{Center: 128, Width: 256}

	gray, err := ToDisplay(img, w, palette.Grayscale)
	require.NoError(t, err)
	g, ok := gray.Image().(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, gray.Pix[1], g.GrayAt(1, 0).Y)

	col, err := ToDisplay(img, w, palette.Cool)
	require.NoError(t, err)
	rgba, ok := col.Image().(*image.RGBA)
	require.True(t, ok)
	c := rgba.RGBAAt(2, 0)
	r, gg, b := col.At(2, 0)
	assert.Equal(t, [4]uint8{r, gg, b, 255}, [4]uint8{c.R, c.G, c.B, c.A})
}
