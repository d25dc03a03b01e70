// Package source loads raw images for the viewer: DICOM Part-10 files with native pixel
// data and raw sample files described by a YAML sidecar.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/wl"
)

var (
	// ErrNotDICOM is returned when the preamble or DICM magic is missing
	ErrNotDICOM = errors.New("not a DICOM file")
	// ErrUnsupportedTransferSyntax is returned for encapsulated (compressed) or big endian pixel data
	ErrUnsupportedTransferSyntax = errors.New("unsupported transfer syntax")
	// ErrMissingAttribute is returned when a required image attribute is absent
	ErrMissingAttribute = errors.New("missing attribute")
	// ErrNoPixelData is returned when the dataset has no Pixel Data element
	ErrNoPixelData = errors.New("no pixel data")
	// ErrChecksum is returned when sidecar samples do not match their recorded md5
	ErrChecksum = errors.New("sample checksum mismatch")
)

// Loader turns files into raw images
type Loader struct {
	Window WindowOptions
}

// DefaultLoader derives missing default windows from the sample range
var DefaultLoader = Loader{Window: DefaultWindowOptions}

// Load dispatches on the file extension: .yaml/.yml are sidecars, everything else is
// read as DICOM.
func Load(path string) (*raw.Image, error) {
	return DefaultLoader.Load(path)
}

// ReadDICOM reads one image from a Part-10 stream
func ReadDICOM(r io.Reader) (*raw.Image, error) {
	return DefaultLoader.ReadDICOM(r)
}

// LoadDICOM reads one image from a Part-10 file
func LoadDICOM(path string) (*raw.Image, error) {
	return DefaultLoader.LoadDICOM(path)
}

// Load dispatches on the file extension
func (l Loader) Load(path string) (*raw.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return l.ReadSidecar(path)
	}
	return l.LoadDICOM(path)
}

// LoadDICOM reads one image from a Part-10 file
func (l Loader) LoadDICOM(path string) (*raw.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, err := l.ReadDICOM(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ReadDICOM reads one image from a Part-10 stream
func (l Loader) ReadDICOM(r io.Reader) (*raw.Image, error) {
	ds, err := ParseDICOM(r)
	if err != nil {
		return nil, err
	}
	return l.Image(ds)
}

// Image builds the first frame of ds. Planar RGB is interleaved, samples with fewer
// stored than allocated bits are reduced to their stored bits, and a missing or
// unusable Window Center/Width is replaced by l.Window.
func (l Loader) Image(ds *Dataset) (*raw.Image, error) {
	if !ds.Syntax.IsNative() || ds.Encapsulated {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransferSyntax, ds.Syntax.Name())
	}
	rows, okRows := ds.Uint16(Rows)
	cols, okCols := ds.Uint16(Columns)
	if !okRows || !okCols {
		return nil, fmt.Errorf("%w: rows/columns", ErrMissingAttribute)
	}
	bitsAllocated, ok := ds.Uint16(BitsAllocated)
	if !ok {
		return nil, fmt.Errorf("%w: bits allocated", ErrMissingAttribute)
	}
	spp, ok := ds.Uint16(SamplesPerPixel)
	if !ok {
		spp = 1
	}
	bitsStored, ok := ds.Uint16(BitsStored)
	if !ok {
		bitsStored = bitsAllocated
	}
	highBit, ok := ds.Uint16(HighBit)
	if !ok {
		highBit = bitsStored - 1
	}
	rep, _ := ds.Uint16(PixelRepresentation)
	signed := rep == 1

	pi := raw.Monochrome2
	if spp == 3 {
		pi = raw.RGB
	}
	if s, ok := ds.Text(PhotometricInterpretation); ok && s != "" {
		pi = raw.ParsePhotometric(s)
	}

	pixels, ok := ds.Bytes(PixelData)
	if !ok {
		return nil, ErrNoPixelData
	}
	pixelCount := int(rows) * int(cols)
	frameSize := pixelCount * int(spp) * ((int(bitsAllocated) + 7) / 8)
	if frames, ok := ds.Int(NumberOfFrames); ok && frames > 1 {
		slog.Debug("multi-frame image, using first frame", slog.Int("frames", frames))
	}
	if len(pixels) > frameSize {
		pixels = pixels[:frameSize]
	}
	if planar, _ := ds.Uint16(PlanarConfiguration); spp == 3 && planar == 1 && bitsAllocated == 8 && len(pixels) == frameSize {
		pixels = interleave(pixels, pixelCount)
	}
	pixels = storedSamples(pixels, bitsAllocated, bitsStored, highBit, signed)

	slope, ok := ds.Float(RescaleSlope)
	if !ok || slope == 0 {
		slope = 1
	}
	intercept, _ := ds.Float(RescaleIntercept)
	modality, _ := ds.Text(Modality)
	series, _ := ds.Text(SeriesDescription)

	b := raw.NewBuilder().
		Dimensions(uint32(cols), uint32(rows)).
		SamplesPerPixel(spp).
		Bits(bitsAllocated, bitsStored, highBit).
		Signed(signed).
		Photometric(pi).
		Data(pixels).
		Rescale(slope, intercept).
		Description(strings.TrimSpace(modality + " " + series))

	center, okC := ds.Float(WindowCenter)
	width, okW := ds.Float(WindowWidth)
	if okC && okW && width >= wl.MinWidth {
		return b.DefaultWindow(wl.WindowLevel{Center: center, Width: width}).Build()
	}
	return l.withDefaultWindow(b)
}

// withDefaultWindow builds once to reach the samples, then again with the derived window
func (l Loader) withDefaultWindow(b *raw.Builder) (*raw.Image, error) {
	img, err := b.Build()
	if err != nil {
		return nil, err
	}
	if !img.IsValid() || img.IsRGB() {
		return img, nil
	}
	w, err := l.Window.Window(img)
	if err != nil {
		slog.Debug("default window unavailable", slog.Any("error", err))
		return img, nil
	}
	return b.DefaultWindow(w).Build()
}

// interleave converts R..G..B.. planes into RGBRGB..
func interleave(planar []byte, pixelCount int) []byte {
	out := make([]byte, len(planar))
	for i := 0; i < pixelCount; i++ {
		out[i*3+0] = planar[i]
		out[i*3+1] = planar[pixelCount+i]
		out[i*3+2] = planar[2*pixelCount+i]
	}
	return out
}

// storedSamples returns 16-bit data with fewer stored than allocated bits reduced to
// its stored bits, copying first so the caller's buffer is untouched. Zero stored and
// high bit values are derived the way raw.Builder derives them.
func storedSamples(data []byte, bitsAllocated, bitsStored, highBit uint16, signed bool) []byte {
	if bitsAllocated != 16 || bitsStored == 0 || bitsStored >= 16 {
		return data
	}
	if highBit == 0 || highBit >= bitsAllocated {
		highBit = bitsStored - 1
	}
	out := append([]byte(nil), data...)
	reduceStoredBits(out, bitsStored, highBit, signed)
	return out
}

// reduceStoredBits keeps the stored bits ending at highBit and sign extends them for
// signed data, in place
func reduceStoredBits(data []byte, bitsStored, highBit uint16, signed bool) {
	shift := int(highBit) + 1 - int(bitsStored)
	if shift < 0 {
		shift = 0
	}
	mask := uint16(1)<<bitsStored - 1
	sign := uint16(1) << (bitsStored - 1)
	for i := 0; i+1 < len(data); i += 2 {
		v := (uint16(data[i]) | uint16(data[i+1])<<8) >> shift & mask
		if signed && v&sign != 0 {
			v |= ^mask
		}
		data[i], data[i+1] = byte(v), byte(v>>8)
	}
}
