package raw

import "strings"

// Photometric declares how samples are to be presented
type Photometric int

const (
	PhotometricUnknown Photometric = iota
	// Monochrome1 presents the minimum sample value as white
	Monochrome1
	// Monochrome2 presents the minimum sample value as black
	Monochrome2
	RGB
	PaletteColor
)

// ParsePhotometric maps a Photometric Interpretation (0028,0004) value.
// Matching ignores case and padding; unrecognized values are PhotometricUnknown.
func ParsePhotometric(s string) Photometric {
	switch strings.ToUpper(strings.TrimRight(strings.TrimSpace(s), "\x00")) {
	case "MONOCHROME1":
		return Monochrome1
	case "MONOCHROME2":
		return Monochrome2
	case "RGB":
		return RGB
	case "PALETTE COLOR":
		return PaletteColor
	}
	return PhotometricUnknown
}

func (p Photometric) String() string {
	switch p {
	case Monochrome1:
		return "MONOCHROME1"
	case Monochrome2:
		return "MONOCHROME2"
	case RGB:
		return "RGB"
	case PaletteColor:
		return "PALETTE COLOR"
	}
	return "UNKNOWN"
}

// IsMonochrome reports whether samples are single-channel intensities
func (p Photometric) IsMonochrome() bool {
	return p == Monochrome1 || p == Monochrome2
}

// Inverted reports whether windowed output must be inverted for display
func (p Photometric) Inverted() bool {
	return p == Monochrome1
}

// MarshalText writes the DICOM defined term
func (p Photometric) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a DICOM defined term
func (p *Photometric) UnmarshalText(b []byte) error {
	*p = ParsePhotometric(string(b))
	return nil
}
