package wl

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oracle evaluates the window/level expression literally: scale = 255/width, then
// floor((v-lower)*scale) between the saturated bounds, inverted after clamping.
func oracle(v, center, width float64, invert bool) uint8 {
	if width <= 0 {
		return 0
	}
	lower := center - width/2
	upper := center + width/2
	var out float64
	switch {
	case v <= lower:
		out = 0
	case v >= upper:
		out = 255
	default:
		out = math.Min(255, math.Floor((v-lower)*(255/width)))
	}
	if invert {
		out = 255 - out
	}
	return uint8(out)
}

func TestBuildLUT_MatchesOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	domains := []struct {
		name     string
		min, max int
	}{
		{"u8", 0, 255},
		{"u16", 0, 65535},
		{"s16", -32768, 32767},
	}
	for _, d := range domains {
		t.Run(d.name, func(t *testing.T) {
			span := float64(d.max - d.min)
			for n := 0; n < 40; n++ {
				var center, width float64
				switch n % 4 {
				case 0:
					// integer center, even width
					center = float64(d.min + rng.Intn(d.max-d.min+1))
					width = float64(2 * (1 + rng.Intn((d.max-d.min)/2)))
				case 1:
					// half-integer center, width not dividing 255
					center = float64(d.min+rng.Intn(d.max-d.min+1)) + 0.5
					width = []float64{105, 117, 210, 234, 1001}[rng.Intn(5)]
				default:
					center = float64(d.min) + rng.Float64()*span
					width = 1 + rng.Float64()*span
				}
				invert := n%2 == 1
				lut := BuildLUT(center, width, d.min, d.max, invert)
				require.Equal(t, d.max-d.min+1, lut.Len())
				for v := d.min; v <= d.max; v += 1 + rng.Intn(7) {
					require.Equal(t, oracle(float64(v), center, width, invert), lut.Lookup(v),
						"v=%d center=%g width=%g invert=%v", v, center, width, invert)
				}
			}
		})
	}
}

func TestMap_ScalesBeforeTruncating(t *testing.T) {
	tests := []struct {
		v, center, width float64
		invert           bool
		want             uint8
	}{
		// 21*(255/105) lands just below 51
		{21, 52.5, 105, false, 50},
		{42, 52.5, 105, false, 101},
		{49, 52.5, 105, false, 118},
		{77, 52.5, 105, false, 186},
		{21, 52.5, 105, true, 205},
		{39, 58.5, 117, false, 84},
		{78, 58.5, 117, false, 169},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Map(tt.v, tt.center, tt.width, tt.invert),
			"v=%g center=%g width=%g invert=%v", tt.v, tt.center, tt.width, tt.invert)
		assert.Equal(t, oracle(tt.v, tt.center, tt.width, tt.invert), Map(tt.v, tt.center, tt.width, tt.invert))
	}
	lut := BuildLUT(52.5, 105, 0, 255, false)
	assert.Equal(t, uint8(50), lut.Lookup(21))
}

func TestBuildLUT_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		center := rng.Float64()*70000 - 35000
		width := 1 + rng.Float64()*70000
		plain := BuildLUT(center, width, -32768, 32767, false)
		inverted := BuildLUT(center, width, -32768, 32767, true)
		for i := 1; i < plain.Len(); i++ {
			require.GreaterOrEqual(t, plain.Table[i], plain.Table[i-1], "center=%g width=%g i=%d", center, width, i)
			require.LessOrEqual(t, inverted.Table[i], inverted.Table[i-1], "center=%g width=%g i=%d", center, width, i)
		}
	}
}

func TestBuildLUT_BoundarySaturation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 50; n++ {
		// windows whose bounds lie inside the domain saturate both ends
		lower := rng.Intn(30000)
		upper := lower + 1 + rng.Intn(65535-lower-1)
		w := WindowLevel{Center: float64(lower+upper) / 2, Width: float64(upper - lower)}
		lut := BuildLUTFor(w, 0, 65535, false)
		assert.Equal(t, uint8(0), lut.Lookup(0))
		assert.Equal(t, uint8(255), lut.Lookup(65535))

		inv := BuildLUTFor(w, 0, 65535, true)
		assert.Equal(t, uint8(255), inv.Lookup(0))
		assert.Equal(t, uint8(0), inv.Lookup(65535))
	}
}

func TestBuildLUT_NonPositiveWidthIsBlank(t *testing.T) {
	for _, width := range []float64{0, -1, -65536} {
		for _, invert := range []bool{false, true} {
			lut := BuildLUT(100, width, 0, 255, invert)
			for i, v := range lut.Table {
				require.Equal(t, uint8(0), v, "width=%g invert=%v i=%d", width, invert, i)
			}
		}
	}
}

func TestBuildLUT_SwapsReversedDomain(t *testing.T) {
	lut := BuildLUT(128, 256, 255, 0, false)
	assert.Equal(t, 0, lut.Min)
	assert.Equal(t, 255, lut.Max)
	assert.Equal(t, 256, lut.Len())
}

func TestBuildLUT_Unsigned16FullRange(t *testing.T) {
	lut := BuildLUT(32768, 65536, 0, 65535, false)
	assert.Equal(t, uint8(0), lut.Lookup(0))
	// 65535*255/65536 truncates to 254, within one level of full scale
	assert.InDelta(t, 255, int(lut.Lookup(65535)), 1)
	assert.InDelta(t, 128, int(lut.Lookup(32768)), 1)
}

func TestBuildLUT_Monochrome1Eight(t *testing.T) {
	lut := BuildLUT(128, 256, 0, 255, true)
	assert.Equal(t, uint8(255), lut.Lookup(0))
	assert.InDelta(t, 0, int(lut.Lookup(255)), 1)
}

func TestLUT_LookupClampsOutOfDomain(t *testing.T) {
	lut := BuildLUT(0, 100, -50, 50, false)
	assert.Equal(t, lut.Table[0], lut.Lookup(-1000))
	assert.Equal(t, lut.Table[lut.Len()-1], lut.Lookup(1000))
}

func TestMap_TruncatesInsteadOfRounding(t *testing.T) {
	// (1.9 - 0) * 255/255 = 1.9 -> 1
	assert.Equal(t, uint8(1), Map(1.9, 127.5, 255, false))
	assert.Equal(t, uint8(254), Map(1.9, 127.5, 255, true))
}

func TestWindowLevel_Clamped(t *testing.T) {
	tests := []struct {
		in   WindowLevel
		want WindowLevel
	}{
		{WindowLevel{Center: 10, Width: 0}, WindowLevel{Center: 10, Width: MinWidth}},
		{WindowLevel{Center: 10, Width: -5}, WindowLevel{Center: 10, Width: MinWidth}},
		{WindowLevel{Center: 10, Width: math.NaN()}, WindowLevel{Center: 10, Width: MinWidth}},
		{WindowLevel{Center: 10, Width: 400}, WindowLevel{Center: 10, Width: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamped())
		})
	}
}

func TestState_MutatorsClampAndReset(t *testing.T) {
	s := NewState(WindowLevel{Center: 40, Width: 400})
	assert.False(t, s.IsModified())

	s.SetWidth(-10)
	assert.Equal(t, MinWidth, s.Current().Width)
	assert.Equal(t, 40.0, s.Current().Center)

	s.SetCenter(100)
	assert.Equal(t, 100.0, s.Current().Center)

	s.Drag(-1000, 0, DefaultSensitivity)
	assert.Equal(t, MinWidth, s.Current().Width)
	assert.True(t, s.IsModified())

	got := s.Reset()
	assert.Equal(t, WindowLevel{Center: 40, Width: 400}, got)
	assert.False(t, s.IsModified())
}

func TestState_Drag(t *testing.T) {
	s := NewState(WindowLevel{Center: 100, Width: 200})
	got := s.Drag(10, 5, Sensitivity{Width: 2, Center: 1})
	assert.Equal(t, WindowLevel{Center: 95, Width: 220}, got)
}

func TestNewState_ClampsDefault(t *testing.T) {
	s := NewState(WindowLevel{Center: 0, Width: 0})
	assert.Equal(t, MinWidth, s.Default().Width)
}

func TestQueue_AppliesInOrderAndCoalesces(t *testing.T) {
	s := NewState(WindowLevel{Center: 0, Width: 100})
	q := &Queue{}
	q.Push(CenterTo(10))
	q.Push(WidthTo(50))
	q.Push(DragBy(5, -2, DefaultSensitivity))
	assert.Equal(t, 3, q.Len())

	got, changed := q.Drain(s)
	assert.True(t, changed)
	assert.Equal(t, WindowLevel{Center: 12, Width: 55}, got)
	assert.Equal(t, 0, q.Len())

	_, changed = q.Drain(s)
	assert.False(t, changed)

	q.Push(ResetTo())
	q.Push(SetTo(WindowLevel{Center: 1, Width: 2}))
	got, _ = q.Drain(s)
	assert.Equal(t, WindowLevel{Center: 1, Width: 2}, got)
}

func TestQueue_ConcurrentPush(t *testing.T) {
	s := NewState(WindowLevel{Center: 0, Width: 100})
	q := &Queue{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(DragBy(1, 0, DefaultSensitivity))
			}
		}()
	}
	wg.Wait()
	got, _ := q.Drain(s)
	assert.Equal(t, 900.0, got.Width)
}

func TestFullRangeAndPresets(t *testing.T) {
	assert.Equal(t, WindowLevel{Center: 32768, Width: 65536}, FullRange(0, 65535))
	assert.Equal(t, WindowLevel{Center: 0, Width: 65536}, FullRange(32767, -32768))
	assert.Equal(t, WindowLevel{Center: 128, Width: 256}, FullRange(0, 255))

	p, err := FindPreset("bone")
	require.NoError(t, err)
	assert.Equal(t, WindowLevel{Center: 400, Width: 2000}, p.Window)

	_, err = FindPreset("nope")
	assert.Error(t, err)
}

func TestWindowLevel_ToStored(t *testing.T) {
	tests := []struct {
		name             string
		slope, intercept float64
		want             WindowLevel
	}{
		{"identity", 1, 0, WindowLevel{Center: 40, Width: 400}},
		{"ct intercept", 1, -1024, WindowLevel{Center: 1064, Width: 400}},
		{"half slope", 0.5, -1024, WindowLevel{Center: 2128, Width: 800}},
		{"negative slope", -2, 0, WindowLevel{Center: -20, Width: 200}},
		{"zero slope", 0, -1024, WindowLevel{Center: 1064, Width: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowLevel{Center: 40, Width: 400}.ToStored(tt.slope, tt.intercept))
		})
	}
	// a stored sample at 40 HU lands mid-window after conversion
	w := WindowLevel{Center: 40, Width: 400}.ToStored(1, -1024)
	assert.Equal(t, uint8(127), Map(1064, w.Center, w.Width, false))
}
