package emath

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// A FloatGrid is a grid of floats, with some operations. Values are
// stored row-major: the value at (x,y) lives at values[y*stride + x].
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromValues wraps the given row-major values; it does not copy them.
func NewFloatGridFromValues(w, h int, values []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 {
		return FloatGrid{}, fmt.Errorf("bad grid dimensions %dx%d", w, h)
	}
	if len(values) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d needs %d values, got %d", w, h, w*h, len(values))
	}
	return FloatGrid{stride: w, values: values}, nil
}

func (g1 *FloatGrid) NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }
func (fg *FloatGrid) Values() []float64       { return fg.values }
func (fg *FloatGrid) Len() int                { return len(fg.values) }

func (fg *FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

func (fg *FloatGrid) Empty() bool { return len(fg.values) == 0 }

// SameShape reports whether both grids have identical dimensions.
func (fg *FloatGrid) SameShape(other *FloatGrid) bool {
	return fg.Dx() == other.Dx() && fg.Dy() == other.Dy()
}

func (fg *FloatGrid) Shape() string { return fmt.Sprintf("%dx%d", fg.Dx(), fg.Dy()) }

func (g1 *FloatGrid) Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// Subtract does fg -= other, pixel-wise. Callers check shapes first.
func (fg *FloatGrid) Subtract(other *FloatGrid) {
	floats.Sub(fg.values, other.values)
}

// SubtractScaled does fg -= scale*other, pixel-wise.
func (fg *FloatGrid) SubtractScaled(other *FloatGrid, scale float64) {
	floats.AddScaled(fg.values, -scale, other.values)
}

// Divide does fg /= other, pixel-wise.
func (fg *FloatGrid) Divide(other *FloatGrid) {
	floats.Div(fg.values, other.values)
}

func (fg *FloatGrid) Scale(c float64) {
	floats.Scale(c, fg.values)
}

// ClampMin raises every value below lo up to lo.
func (fg *FloatGrid) ClampMin(lo float64) {
	for i, v := range fg.values {
		if v < lo {
			fg.values[i] = lo
		}
	}
}

// ReplaceAtOrBelow sets every value <= thresh to repl, and returns how many were replaced.
func (fg *FloatGrid) ReplaceAtOrBelow(thresh, repl float64) int {
	n := 0
	for i, v := range fg.values {
		if v <= thresh {
			fg.values[i] = repl
			n++
		}
	}
	return n
}

// HasNonFinite is true if any value is NaN or +/-Inf.
func (fg *FloatGrid) HasNonFinite() bool { return fg.CountNonFinite() > 0 }

func (fg *FloatGrid) CountNonFinite() int {
	n := 0
	for _, v := range fg.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

func (fg *FloatGrid) Median() float64 { return Median(fg.values) }
func (fg *FloatGrid) Sum() float64    { return floats.Sum(fg.values) }

// MinMaxMean returns the basic range stats; all zero for an empty grid.
func (fg *FloatGrid) MinMaxMean() (float64, float64, float64) {
	if len(fg.values) == 0 {
		return 0, 0, 0
	}
	return floats.Min(fg.values), floats.Max(fg.values), fg.Sum() / float64(len(fg.values))
}

// DownSample returns a grid that is 1/4 of the size, averaging the values from the
// original.
func (g1 *FloatGrid) DownSample() FloatGrid {
	width := g1.Dx() / 2
	height := g1.Dy() / 2
	g2 := NewFloatGrid(width, height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := g1.Get(2*x, 2*y)
			p += g1.Get(2*x+1, 2*y)
			p += g1.Get(2*x, 2*y+1)
			p += g1.Get(2*x+1, 2*y+1)
			g2.Set(x, y, p/4.0)
		}
	}

	return g2
}

// FindMinMaxAtPercentile returns the values found at the two
// percentiles (each in [0.0, 1.0]) of the sorted grid values. NaNs are
// ignored.
func (I *FloatGrid) FindMinMaxAtPercentile(minPrct, maxPrct float64) (float64, float64) {
	vI := make([]float64, 0, len(I.values))
	for _, val := range I.values {
		if !math.IsNaN(val) {
			vI = append(vI, val)
		}
	}
	if len(vI) == 0 {
		return 0, 0
	}

	sort.Float64s(vI)

	iMin := int(minPrct * float64(len(vI)))
	iMax := int(maxPrct * float64(len(vI)))
	if iMin < 0 {
		iMin = 0
	}
	if iMin >= len(vI) {
		iMin = len(vI) - 1
	}
	if iMax >= len(vI) {
		iMax = len(vI) - 1
	}

	return vI[iMin], vI[iMax]
}

func (fg *FloatGrid) Stats() string {
	min, max, mean := fg.MinMaxMean()
	return fmt.Sprintf("fg[%dx%d, vals{%.2f,%.2f}, mean %.2f]", fg.Dx(), fg.Dy(), min, max, mean)
}
