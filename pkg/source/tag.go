package source

import "fmt"

// Tag is a DICOM attribute tag
type Tag struct {
	Group   uint16
	Element uint16
}

func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// IsMeta reports a File Meta Information tag
func (t Tag) IsMeta() bool {
	return t.Group == 0x0002
}

// File meta
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
)

// Description
var (
	Modality          = Tag{0x0008, 0x0060}
	SeriesDescription = Tag{0x0008, 0x103E}
)

// Image Pixel module
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	PlanarConfiguration       = Tag{0x0028, 0x0006}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	WindowCenter              = Tag{0x0028, 0x1050}
	WindowWidth               = Tag{0x0028, 0x1051}
	RescaleIntercept          = Tag{0x0028, 0x1052}
	RescaleSlope              = Tag{0x0028, 0x1053}
	PixelData                 = Tag{0x7FE0, 0x0010}
)

// Delimiters
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// implicitVR returns the VR of the tags this package reads when the transfer syntax
// does not carry one
func implicitVR(t Tag) string {
	switch {
	case t.Group == 0x0002:
		return "UL"
	case t == PixelData:
		return "OW"
	case t.Group == 0x0028:
		switch t.Element {
		case 0x0002, 0x0006, 0x0010, 0x0011, 0x0100, 0x0101, 0x0102, 0x0103:
			return "US"
		case 0x0008:
			return "IS"
		case 0x1050, 0x1051, 0x1052, 0x1053:
			return "DS"
		case 0x0004:
			return "CS"
		}
	case t == Modality:
		return "CS"
	case t == SeriesDescription:
		return "LO"
	}
	return "UN"
}

// isLongVR reports a VR with a 4-byte value length in explicit VR encoding
func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OV", "OW", "SQ", "SV", "UC", "UR", "UT", "UN", "UV":
		return true
	}
	return false
}
