package wl

// LUT maps every raw value of a sample domain to an 8-bit intensity.
// Entry i holds the output for raw value Min+i.
type LUT struct {
	Min   int
	Max   int
	Table []uint8
}

// BuildLUT precomputes Map over [domainMin, domainMax] for the given window.
// A reversed domain is swapped before use. A width <= 0 yields an all-zero table.
func BuildLUT(center, width float64, domainMin, domainMax int, invert bool) *LUT {
	if domainMax < domainMin {
		domainMin, domainMax = domainMax, domainMin
	}
	lut := &LUT{
		Min:   domainMin,
		Max:   domainMax,
		Table: make([]uint8, domainMax-domainMin+1),
	}
	if width <= 0 {
		return lut
	}
	for i := range lut.Table {
		lut.Table[i] = Map(float64(domainMin+i), center, width, invert)
	}
	return lut
}

// BuildLUTFor is BuildLUT for a WindowLevel value
func BuildLUTFor(w WindowLevel, domainMin, domainMax int, invert bool) *LUT {
	return BuildLUT(w.Center, w.Width, domainMin, domainMax, invert)
}

// Len returns the number of entries
func (l *LUT) Len() int {
	return len(l.Table)
}

// Lookup returns the output for raw value v; values outside the domain clamp to its ends
func (l *LUT) Lookup(v int) uint8 {
	switch {
	case v <= l.Min:
		return l.Table[0]
	case v >= l.Max:
		return l.Table[len(l.Table)-1]
	}
	return l.Table[v-l.Min]
}
