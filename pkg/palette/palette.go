// Package palette provides the 256-entry pseudo-colour tables applied to windowed
// grayscale intensities.
package palette

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Kind selects one of the built-in palettes. The declaration order is the catalog order.
type Kind int

const (
	Grayscale Kind = iota
	Inverted
	Hot
	Cool
	Rainbow
	Bone
	Copper
	Ocean

	kindCount
)

// Table maps an 8-bit intensity to RGB
type Table [256][3]uint8

// Entry is one catalog row
type Entry struct {
	Kind        Kind   `json:"kind"`
	DisplayName string `json:"displayName"`
}

var kindInfo = [kindCount]struct {
	short   string
	display string
	gen     func(t float64, i int) [3]uint8
}{
	Grayscale: {"grayscale", "Grayscale", grayscale},
	Inverted:  {"inverted", "Inverted", inverted},
	Hot:       {"hot", "Hot (Thermal)", hot},
	Cool:      {"cool", "Cool", cool},
	Rainbow:   {"rainbow", "Rainbow", rainbow},
	Bone:      {"bone", "Bone", bone},
	Copper:    {"copper", "Copper", copper},
	Ocean:     {"ocean", "Ocean", ocean},
}

// Kinds returns every kind in catalog order
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Catalog returns {kind, display name} pairs in catalog order
func Catalog() []Entry {
	out := make([]Entry, kindCount)
	for i := range out {
		out[i] = Entry{Kind: Kind(i), DisplayName: kindInfo[i].display}
	}
	return out
}

// Valid reports whether k is a built-in kind
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// String returns the short lower-case name used on command lines and in config files
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("palette(%d)", int(k))
	}
	return kindInfo[k].short
}

// DisplayName returns the human readable name
func (k Kind) DisplayName() string {
	if !k.Valid() {
		return "Unknown"
	}
	return kindInfo[k].display
}

// IsColor reports whether the kind changes a windowed image from Gray8 to RGB24 output.
// Only Grayscale keeps the gray output path.
func (k Kind) IsColor() bool {
	return k != Grayscale
}

// Next returns the following kind, wrapping to the first
func (k Kind) Next() Kind {
	return Kind((int(k) + 1) % int(kindCount))
}

// Prev returns the preceding kind, wrapping to the last
func (k Kind) Prev() Kind {
	return Kind((int(k) + int(kindCount) - 1) % int(kindCount))
}

// MarshalText writes the short name
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid palette kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts a short or display name
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind matches a short name ("hot") or display name ("Hot (Thermal)"), ignoring case
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for i, info := range kindInfo {
		if strings.EqualFold(s, info.short) || strings.EqualFold(s, info.display) {
			return Kind(i), nil
		}
	}
	return Grayscale, fmt.Errorf("unknown palette %q", s)
}

// Generate builds the table for k. Generation is pure: the same kind always yields the
// same bytes. Unknown kinds generate the grayscale table.
func Generate(k Kind) Table {
	gen := grayscale
	if k.Valid() {
		gen = kindInfo[k].gen
	}
	var tbl Table
	for i := 0; i < 256; i++ {
		tbl[i] = gen(float64(i)/255.0, i)
	}
	return tbl
}

var tables [kindCount]func() Table

func init() {
	for i := range tables {
		k := Kind(i)
		tables[i] = sync.OnceValue(func() Table { return Generate(k) })
	}
}

// For returns the table for k, generated once per process
func For(k Kind) Table {
	if !k.Valid() {
		return Generate(k)
	}
	return tables[k]()
}

// Map returns the colour for intensity v
func (t *Table) Map(v uint8) (r, g, b uint8) {
	c := t[v]
	return c[0], c[1], c[2]
}

// Bytes returns the table packed as 256 RGB triples, the layout of a 256x1 RGB texture
func (t *Table) Bytes() []byte {
	out := make([]byte, 0, 256*3)
	for _, c := range t {
		out = append(out, c[0], c[1], c[2])
	}
	return out
}

func grayscale(_ float64, i int) [3]uint8 {
	v := uint8(i)
	return [3]uint8{v, v, v}
}

func inverted(_ float64, i int) [3]uint8 {
	v := uint8(255 - i)
	return [3]uint8{v, v, v}
}

// hot runs black, red, yellow, white with hard knees at 0.375 and 0.75
func hot(t float64, _ int) [3]uint8 {
	var r, g, b uint8
	if t < 0.375 {
		r = uint8(t / 0.375 * 255)
	} else {
		r = 255
	}
	switch {
	case t < 0.375:
		g = 0
	case t < 0.75:
		g = uint8((t - 0.375) / 0.375 * 255)
	default:
		g = 255
	}
	if t < 0.75 {
		b = 0
	} else {
		b = uint8((t - 0.75) / 0.25 * 255)
	}
	return [3]uint8{r, g, b}
}

func cool(t float64, _ int) [3]uint8 {
	return [3]uint8{uint8(t * 255), uint8((1.0 - t) * 255), 255}
}

// rainbow walks the HSV hue circle from red (0°) to magenta (300°) at full saturation
func rainbow(t float64, _ int) [3]uint8 {
	hue := t * 300.0
	x := 1.0 - math.Abs(math.Mod(hue/60.0, 2.0)-1.0)
	var r, g, b float64
	switch {
	case hue < 60:
		r, g, b = 1, x, 0
	case hue < 120:
		r, g, b = x, 1, 0
	case hue < 180:
		r, g, b = 0, 1, x
	case hue < 240:
		r, g, b = 0, x, 1
	default:
		r, g, b = x, 0, 1
	}
	return [3]uint8{uint8(r * 255), uint8(g * 255), uint8(b * 255)}
}

// bone is a gray ramp with a slight blue cast in the shadows
func bone(t float64, _ int) [3]uint8 {
	rg := uint8(math.Min(255.0, t*255*0.9+t*t*25.5))
	return [3]uint8{rg, rg, uint8(math.Min(255.0, t*255))}
}

func copper(t float64, _ int) [3]uint8 {
	return [3]uint8{
		uint8(math.Min(255.0, t*1.25*255)),
		uint8(t * 0.7812 * 255),
		uint8(t * 0.4975 * 255),
	}
}

func ocean(t float64, _ int) [3]uint8 {
	return [3]uint8{uint8(t * t * 255), uint8(t * 255), uint8((0.4 + 0.6*t) * 255)}
}
