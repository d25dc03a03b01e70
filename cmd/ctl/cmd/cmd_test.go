package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/source"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(context.Background(), "abc123")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeCT writes a signed 16-bit ramp sidecar into dir
func writeCT(t *testing.T, dir string) string {
	t.Helper()
	const w, h = 16, 8
	data := make([]byte, 0, w*h*2)
	for i := 0; i < w*h; i++ {
		data = binary.LittleEndian.AppendUint16(data, uint16(int16(i*40-2000)))
	}
	img, err := raw.NewBuilder().
		Dimensions(w, h).
		Bits(16, 16, 15).
		Signed(true).
		Photometric(raw.Monochrome2).
		Data(data).
		DefaultWindow(wl.WindowLevel{Center: 40, Width: 400}).
		Description("CT ramp").
		Build()
	require.NoError(t, err)
	desc := filepath.Join(dir, "ramp.yaml")
	require.NoError(t, source.WriteSidecar(desc, "ramp.raw", img))
	return desc
}

func TestVersionAndPalettes(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "abc123\n", out)

	out, err = run(t, "palettes")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[0], "Grayscale")
	assert.Contains(t, lines[2], "Hot (Thermal)")
}

func TestLUT(t *testing.T) {
	out, err := run(t, "lut", "--domain", "u8", "--center", "127.5", "--width", "255", "--step", "255")
	require.NoError(t, err)
	assert.Contains(t, out, "0\t0\n")
	assert.Contains(t, out, "255\t255\n")

	out, err = run(t, "lut", "--domain", "u8", "--center", "127.5", "--width", "255", "--step", "255", "--invert")
	require.NoError(t, err)
	assert.Contains(t, out, "0\t255\n")
	assert.Contains(t, out, "255\t0\n")

	_, err = run(t, "lut", "--domain", "u12")
	assert.Error(t, err)
}

func TestInfoRenderCompare(t *testing.T) {
	dir := t.TempDir()
	desc := writeCT(t, dir)

	out, err := run(t, "info", desc)
	require.NoError(t, err)
	assert.Contains(t, out, "Description: CT ramp")
	assert.Contains(t, out, "Domain: s16")
	assert.Contains(t, out, "Default window: C:40 W:400")

	pngPath := filepath.Join(dir, "ramp.png")
	_, err = run(t, "render", desc, "-o", pngPath, "--palette", "hot", "--vw", "40", "--vh", "20", "--rotate", "1")
	require.NoError(t, err)
	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	pic, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 40, pic.Bounds().Dx())
	assert.Equal(t, 20, pic.Bounds().Dy())

	snap := filepath.Join(dir, "snap.png")
	_, err = run(t, "render", desc, "-o", snap, "--preset", "bone")
	require.NoError(t, err)
	_, err = os.Stat(snap)
	assert.NoError(t, err)

	out, err = run(t, "compare", desc, "--tolerance", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "grayscale")
	assert.Contains(t, out, "ocean")
	assert.NotContains(t, out, "max-delta=1")

	_, err = run(t, "render", desc, "-o", snap, "--palette", "plaid")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	desc := writeCT(t, dir)
	out := filepath.Join(dir, "copy.yaml")

	_, err := run(t, "export", desc, "-o", out, "--zstd")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "copy.raw.zst"))
	require.NoError(t, err)

	orig, err := source.Load(desc)
	require.NoError(t, err)
	back, err := source.Load(out)
	require.NoError(t, err)
	assert.Equal(t, orig.Bytes(), back.Bytes())
	assert.Equal(t, orig.Window().Default(), back.Window().Default())
}

func TestRenderPresetUsesRescale(t *testing.T) {
	dir := t.TempDir()
	// stored 1064 is 40 HU under a -1024 intercept
	img, err := raw.NewBuilder().
		Dimensions(1, 1).
		Bits(16, 16, 15).
		Photometric(raw.Monochrome2).
		Data(binary.LittleEndian.AppendUint16(nil, 1064)).
		Rescale(1, -1024).
		DefaultWindow(wl.WindowLevel{Center: 0, Width: 100}).
		Build()
	require.NoError(t, err)
	desc := filepath.Join(dir, "hu.yaml")
	require.NoError(t, source.WriteSidecar(desc, "hu.raw", img))

	snap := filepath.Join(dir, "hu.png")
	_, err = run(t, "render", desc, "-o", snap, "--preset", "soft_tissue", "--palette", "grayscale")
	require.NoError(t, err)
	f, err := os.Open(snap)
	require.NoError(t, err)
	defer f.Close()
	pic, err := png.Decode(f)
	require.NoError(t, err)
	r, g, b, _ := pic.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{127, 127, 127}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

// element appends one explicit VR little endian element with a short length
func element(buf *bytes.Buffer, t source.Tag, vr string, value []byte) {
	binary.Write(buf, binary.LittleEndian, t.Group)
	binary.Write(buf, binary.LittleEndian, t.Element)
	buf.WriteString(vr)
	if vr == "OB" || vr == "OW" {
		buf.Write([]byte{0, 0})
		binary.Write(buf, binary.LittleEndian, uint32(len(value)))
	} else {
		binary.Write(buf, binary.LittleEndian, uint16(len(value)))
	}
	buf.Write(value)
}

func TestInfoDICOM(t *testing.T) {
	var meta bytes.Buffer
	element(&meta, source.TransferSyntaxUID, "UI", []byte(string(source.ExplicitVRLittleEndian)+"\x00"))

	var buf bytes.Buffer
	buf.Write(make([]byte, 128))
	buf.WriteString("DICM")
	element(&buf, source.FileMetaInformationGroupLength, "UL", binary.LittleEndian.AppendUint32(nil, uint32(meta.Len())))
	buf.Write(meta.Bytes())
	element(&buf, source.Modality, "CS", []byte("CT"))
	element(&buf, source.Rows, "US", binary.LittleEndian.AppendUint16(nil, 1))
	element(&buf, source.Columns, "US", binary.LittleEndian.AppendUint16(nil, 2))
	element(&buf, source.BitsAllocated, "US", binary.LittleEndian.AppendUint16(nil, 8))
	element(&buf, source.PixelData, "OB", []byte{10, 200})

	path := filepath.Join(t.TempDir(), "ct.dcm")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Modality: CT")
	assert.Contains(t, out, "TransferSyntax: "+string(source.ExplicitVRLittleEndian))
	assert.Contains(t, out, "Size: 2x1")
	assert.Contains(t, out, "Sample range: min=10, max=200")

	_, err = run(t, "info", filepath.Join(t.TempDir(), "missing.dcm"))
	assert.Error(t, err)
}
