package source

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
)

const undefinedLength = 0xFFFFFFFF

// Element is one decoded data element
type Element struct {
	Tag   Tag
	VR    string
	Value interface{}
}

// Dataset holds the elements of a Part-10 stream keyed by tag. Sequences are skipped and
// encapsulated pixel data is not read.
type Dataset struct {
	Syntax       Syntax
	Encapsulated bool
	Elements     map[Tag]*Element
}

// Text returns a string valued element with padding removed
func (ds *Dataset) Text(t Tag) (string, bool) {
	e, ok := ds.Elements[t]
	if !ok {
		return "", false
	}
	s, ok := e.Value.(string)
	return s, ok
}

// Uint16 returns the first value of a US element
func (ds *Dataset) Uint16(t Tag) (uint16, bool) {
	e, ok := ds.Elements[t]
	if !ok {
		return 0, false
	}
	switch v := e.Value.(type) {
	case uint16:
		return v, true
	case []uint16:
		if len(v) > 0 {
			return v[0], true
		}
	case []byte:
		// implicit VR for a tag this package has no dictionary entry for
		if len(v) >= 2 {
			return binary.LittleEndian.Uint16(v), true
		}
	}
	return 0, false
}

// Float returns the first value of a numeric element; multi-valued DS/IS strings
// are separated by backslashes
func (ds *Dataset) Float(t Tag) (float64, bool) {
	e, ok := ds.Elements[t]
	if !ok {
		return 0, false
	}
	switch v := e.Value.(type) {
	case string:
		first, _, _ := strings.Cut(v, `\`)
		f, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case uint16:
		return float64(v), true
	case int16:
		return float64(v), true
	}
	return 0, false
}

// Int returns the first value of a numeric element truncated to an int
func (ds *Dataset) Int(t Tag) (int, bool) {
	f, ok := ds.Float(t)
	return int(f), ok
}

// Bytes returns a binary valued element
func (ds *Dataset) Bytes(t Tag) ([]byte, bool) {
	e, ok := ds.Elements[t]
	if !ok {
		return nil, false
	}
	b, ok := e.Value.([]byte)
	return b, ok
}

// elementReader decodes little-endian data elements
type elementReader struct {
	r          *bufio.Reader
	explicitVR bool
}

// ParseDICOM reads a Part-10 stream: 128-byte preamble, "DICM", the file meta group in
// explicit VR little endian, then the dataset in the declared transfer syntax.
func ParseDICOM(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	preamble := make([]byte, 128)
	if _, err := io.ReadFull(br, preamble); err != nil {
		return nil, fmt.Errorf("%w: reading preamble: %w", ErrNotDICOM, err)
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %w", ErrNotDICOM, err)
	}
	if string(magic) != "DICM" {
		return nil, fmt.Errorf("%w: missing DICM magic", ErrNotDICOM)
	}

	ds := &Dataset{Elements: make(map[Tag]*Element)}
	rd := &elementReader{r: br, explicitVR: true}

	if err := rd.readMeta(ds); err != nil {
		return nil, fmt.Errorf("reading file meta: %w", err)
	}

	ds.Syntax = ImplicitVRLittleEndian
	if ts, ok := ds.Text(TransferSyntaxUID); ok && ts != "" {
		ds.Syntax = Syntax(ts)
	}
	if ds.Syntax == ExplicitVRBigEndian {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransferSyntax, ds.Syntax.Name())
	}
	rd.explicitVR = ds.Syntax.IsExplicitVR()
	if ds.Syntax.IsDeflated() {
		rd.r = bufio.NewReader(flate.NewReader(br))
	}

	for {
		t, err := rd.next(ds)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading element %v: %w", t, err)
		}
	}
	return ds, nil
}

// readMeta reads the file meta group, which is always explicit VR little endian. The
// group ends after File Meta Information Group Length bytes, or at the first element of
// another group when that length is absent.
func (rd *elementReader) readMeta(ds *Dataset) error {
	src := rd.r
	defer func() { rd.r = src }()
	for {
		peek, err := src.Peek(2)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if binary.LittleEndian.Uint16(peek) != 0x0002 {
			return nil
		}
		t, err := rd.next(ds)
		if err != nil {
			return err
		}
		if t != FileMetaInformationGroupLength {
			continue
		}
		n, ok := ds.Elements[t].Value.(uint32)
		if !ok {
			continue
		}
		meta, err := readValue(src, n)
		if err != nil {
			return err
		}
		rd.r = bufio.NewReader(bytes.NewReader(meta))
		for {
			if _, err := rd.next(ds); err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
		}
	}
}

// next reads one element into ds and returns its tag; io.EOF means a clean end of stream
func (rd *elementReader) next(ds *Dataset) (Tag, error) {
	t, err := rd.readTag()
	if err != nil {
		return t, err
	}
	vr, vl, err := rd.readHeader(t)
	if err != nil {
		return t, unexpected(err)
	}
	if vl == undefinedLength {
		if t == PixelData {
			ds.Encapsulated = true
		}
		if err := rd.skipUndefined(); err != nil {
			return t, err
		}
		return t, nil
	}
	data, err := readValue(rd.r, vl)
	if err != nil {
		return t, err
	}
	ds.Elements[t] = &Element{Tag: t, VR: vr, Value: parseValue(vr, data)}
	return t, nil
}

func (rd *elementReader) readTag() (Tag, error) {
	var b [4]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return Tag{}, err
	}
	return Tag{Group: binary.LittleEndian.Uint16(b[0:]), Element: binary.LittleEndian.Uint16(b[2:])}, nil
}

// readHeader reads VR and value length; delimiters never carry a VR
func (rd *elementReader) readHeader(t Tag) (string, uint32, error) {
	if !rd.explicitVR || t.Group == 0xFFFE {
		var vl uint32
		if err := binary.Read(rd.r, binary.LittleEndian, &vl); err != nil {
			return "", 0, err
		}
		return implicitVR(t), vl, nil
	}
	var b [2]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return "", 0, err
	}
	vr := string(b[:])
	if isLongVR(vr) {
		var hdr [6]byte // 2 reserved + 4 length
		if _, err := io.ReadFull(rd.r, hdr[:]); err != nil {
			return "", 0, err
		}
		return vr, binary.LittleEndian.Uint32(hdr[2:]), nil
	}
	var vl uint16
	if err := binary.Read(rd.r, binary.LittleEndian, &vl); err != nil {
		return "", 0, err
	}
	return vr, uint32(vl), nil
}

// skipUndefined discards an undefined length sequence or encapsulated pixel data up to
// and including its Sequence Delimitation Item
func (rd *elementReader) skipUndefined() error {
	for {
		t, err := rd.readTag()
		if err != nil {
			return fmt.Errorf("skipping sequence: %w", unexpected(err))
		}
		_, vl, err := rd.readHeader(t)
		if err != nil {
			return fmt.Errorf("skipping sequence: %w", unexpected(err))
		}
		switch t {
		case SequenceDelimitationItem:
			return nil
		case ItemDelimitationItem:
			continue
		}
		if vl == undefinedLength {
			// undefined length item: its elements follow inline
			if t == Item {
				continue
			}
			if err := rd.skipUndefined(); err != nil {
				return err
			}
			continue
		}
		if _, err := rd.r.Discard(int(vl)); err != nil {
			return fmt.Errorf("skipping %v: %w", t, unexpected(err))
		}
	}
}

// maxPrealloc bounds the buffer allocated up front for a value length read from the stream
const maxPrealloc = 1 << 20

// readValue reads exactly n bytes. Values longer than maxPrealloc grow as bytes arrive,
// so a corrupt length fails on a short stream instead of allocating it.
func readValue(r io.Reader, n uint32) ([]byte, error) {
	if n <= maxPrealloc {
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, unexpected(err)
		}
		return data, nil
	}
	var buf bytes.Buffer
	buf.Grow(maxPrealloc)
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		return nil, unexpected(err)
	}
	return buf.Bytes(), nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// parseValue converts raw bytes to a typed value based on VR
func parseValue(vr string, data []byte) interface{} {
	switch vr {
	case "AE", "AS", "CS", "DA", "DS", "DT", "IS", "LO", "LT", "PN", "SH", "ST", "TM", "UC", "UI", "UR", "UT":
		s := string(data)
		for len(s) > 0 && (s[len(s)-1] == 0 || s[len(s)-1] == ' ') {
			s = s[:len(s)-1]
		}
		return strings.TrimLeft(s, " ")
	case "US":
		if len(data) == 2 {
			return binary.LittleEndian.Uint16(data)
		}
		values := make([]uint16, len(data)/2)
		for i := range values {
			values[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return values
	case "UL":
		if len(data) == 4 {
			return binary.LittleEndian.Uint32(data)
		}
	case "SS":
		if len(data) == 2 {
			return int16(binary.LittleEndian.Uint16(data))
		}
	case "SL":
		if len(data) == 4 {
			return int32(binary.LittleEndian.Uint32(data))
		}
	case "FL":
		if len(data) == 4 {
			return math.Float32frombits(binary.LittleEndian.Uint32(data))
		}
	case "FD":
		if len(data) == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(data))
		}
	}
	return data
}
