package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/util"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Sidecar describes a raw little-endian sample file stored next to it. A data file
// ending in .zst is zstd compressed; a non-empty md5 must match the decoded samples.
type Sidecar struct {
	Data             string          `yaml:"data"`
	Width            uint32          `yaml:"width"`
	Height           uint32          `yaml:"height"`
	SamplesPerPixel  uint16          `yaml:"samples_per_pixel"`
	BitsAllocated    uint16          `yaml:"bits_allocated"`
	BitsStored       uint16          `yaml:"bits_stored,omitempty"`
	HighBit          uint16          `yaml:"high_bit,omitempty"`
	Signed           bool            `yaml:"signed"`
	Photometric      raw.Photometric `yaml:"photometric"`
	Window           *wl.WindowLevel `yaml:"window,omitempty"`
	RescaleSlope     float64         `yaml:"rescale_slope,omitempty"`
	RescaleIntercept float64         `yaml:"rescale_intercept,omitempty"`
	Description      string          `yaml:"description,omitempty"`
	Checksum         string          `yaml:"md5,omitempty"`
}

// SidecarFor describes img, storing its samples in dataName
func SidecarFor(img *raw.Image, dataName string) Sidecar {
	slope, intercept := img.Rescale()
	w := img.Window().Default()
	return Sidecar{
		Data:             dataName,
		Width:            uint32(img.Width()),
		Height:           uint32(img.Height()),
		SamplesPerPixel:  uint16(img.SamplesPerPixel()),
		BitsAllocated:    uint16(img.BitsAllocated()),
		BitsStored:       uint16(img.BitsStored()),
		HighBit:          uint16(img.HighBit()),
		Signed:           img.IsSigned(),
		Photometric:      img.Photometric(),
		Window:           &w,
		RescaleSlope:     slope,
		RescaleIntercept: intercept,
		Description:      img.Description(),
		Checksum:         util.Md5ThenHex(img.Bytes()),
	}
}

// ReadSidecar loads the descriptor at path and the sample file it names, which is
// resolved relative to the descriptor
func ReadSidecar(path string) (*raw.Image, error) {
	return DefaultLoader.ReadSidecar(path)
}

// ReadSidecar loads the descriptor at path and the sample file it names
func (l Loader) ReadSidecar(path string) (*raw.Image, error) {
	desc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	var sc Sidecar
	if err := yaml.Unmarshal(desc, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar %s: %w", path, err)
	}
	if sc.Data == "" {
		return nil, fmt.Errorf("%w: sidecar %s names no data file", ErrMissingAttribute, path)
	}
	dataPath := sc.Data
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(path), dataPath)
	}
	data, err := readSamples(dataPath)
	if err != nil {
		return nil, err
	}
	if sc.Checksum != "" && !strings.EqualFold(sc.Checksum, util.Md5ThenHex(data)) {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, dataPath)
	}
	return l.FromSidecar(sc, data)
}

// FromSidecar builds an image from a descriptor and its decoded samples. 16-bit samples
// with fewer stored bits are reduced to them as DICOM pixel data is.
func (l Loader) FromSidecar(sc Sidecar, data []byte) (*raw.Image, error) {
	spp := sc.SamplesPerPixel
	if spp == 0 {
		spp = 1
	}
	bits := sc.BitsAllocated
	if bits == 0 {
		bits = 8
	}
	slope := sc.RescaleSlope
	if slope == 0 {
		slope = 1
	}
	b := raw.NewBuilder().
		Dimensions(sc.Width, sc.Height).
		SamplesPerPixel(spp).
		Bits(bits, sc.BitsStored, sc.HighBit).
		Signed(sc.Signed).
		Photometric(sc.Photometric).
		Data(storedSamples(data, bits, sc.BitsStored, sc.HighBit, sc.Signed)).
		Rescale(slope, sc.RescaleIntercept).
		Description(sc.Description)
	if sc.Window != nil && sc.Window.Width >= wl.MinWidth {
		return b.DefaultWindow(*sc.Window).Build()
	}
	return l.withDefaultWindow(b)
}

// WriteSidecar writes img's samples to dataName beside path and the descriptor to path.
// A dataName ending in .zst is zstd compressed.
func WriteSidecar(path, dataName string, img *raw.Image) error {
	sc := SidecarFor(img, dataName)
	desc, err := yaml.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := writeSamples(filepath.Join(filepath.Dir(path), dataName), img.Bytes()); err != nil {
		return err
	}
	if err := os.WriteFile(path, desc, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

func readSamples(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples: %w", err)
	}
	defer f.Close()
	if !strings.EqualFold(filepath.Ext(path), ".zst") {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read samples: %w", err)
		}
		return data, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd samples: %w", err)
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress samples: %w", err)
	}
	return data, nil
}

func writeSamples(path string, data []byte) error {
	if !strings.EqualFold(filepath.Ext(path), ".zst") {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}
		return nil
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to compress samples: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}
