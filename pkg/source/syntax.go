package source

// Syntax is a DICOM transfer syntax UID
type Syntax string

const (
	ImplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian    Syntax = "1.2.840.10008.1.2.1"
	ExplicitVRLittleEndianExt Syntax = "1.2.840.10008.1.2.1.64"
	DeflatedExplicitVR        Syntax = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian       Syntax = "1.2.840.10008.1.2.2"

	JPEGBaseline           Syntax = "1.2.840.10008.1.2.4.50"
	JPEGLosslessFirstOrder Syntax = "1.2.840.10008.1.2.4.70"
	JPEGLSLossless         Syntax = "1.2.840.10008.1.2.4.80"
	JPEG2000Lossless       Syntax = "1.2.840.10008.1.2.4.90"
	RLELossless            Syntax = "1.2.840.10008.1.2.5"
)

// IsExplicitVR reports whether elements carry their VR
func (s Syntax) IsExplicitVR() bool {
	return s != ImplicitVRLittleEndian
}

// IsDeflated reports a dataset compressed with raw deflate after the file meta group
func (s Syntax) IsDeflated() bool {
	return s == DeflatedExplicitVR
}

// IsNative reports pixel data stored as plain little-endian samples
func (s Syntax) IsNative() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, ExplicitVRLittleEndianExt, DeflatedExplicitVR:
		return true
	}
	return false
}

// Name returns a readable name for the syntaxes this package knows
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case ExplicitVRLittleEndianExt:
		return "Explicit VR Little Endian Extended"
	case DeflatedExplicitVR:
		return "Deflated Explicit VR Little Endian"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian (Retired)"
	case JPEGBaseline:
		return "JPEG Baseline"
	case JPEGLosslessFirstOrder:
		return "JPEG Lossless First-Order"
	case JPEGLSLossless:
		return "JPEG-LS Lossless"
	case JPEG2000Lossless:
		return "JPEG 2000 Lossless"
	case RLELossless:
		return "RLE Lossless"
	}
	return string(s)
}
