package emath

import (
	"math"
	"testing"
)

func gridOf(t *testing.T, w, h int, vals ...float64) FloatGrid {
	t.Helper()
	g, err := NewFloatGridFromValues(w, h, vals)
	if err != nil {
		t.Fatalf("NewFloatGridFromValues: %v", err)
	}
	return g
}

func TestNewFloatGridFromValuesRejectsBadLength(t *testing.T) {
	if _, err := NewFloatGridFromValues(2, 2, []float64{1, 2, 3}); err == nil {
		t.Errorf("expected error for 3 values in a 2x2 grid")
	}
	if _, err := NewFloatGridFromValues(0, 2, nil); err == nil {
		t.Errorf("expected error for zero width")
	}
}

func TestGetSetRowMajor(t *testing.T) {
	g := NewFloatGrid(3, 2)
	g.Set(2, 1, 7)
	if got := g.Values()[1*3+2]; got != 7 {
		t.Errorf("value at (2,1) stored at wrong index, got %v", got)
	}
	if g.Dx() != 3 || g.Dy() != 2 {
		t.Errorf("dims %dx%d, want 3x2", g.Dx(), g.Dy())
	}
}

func TestArithmetic(t *testing.T) {
	a := gridOf(t, 2, 2, 10, 20, 30, 40)
	b := gridOf(t, 2, 2, 1, 2, 3, 4)

	c := a.Copy()
	c.Subtract(&b)
	want := []float64{9, 18, 27, 36}
	for i, v := range c.Values() {
		if v != want[i] {
			t.Errorf("Subtract[%d] = %v, want %v", i, v, want[i])
		}
	}
	if a.Get(0, 0) != 10 {
		t.Errorf("Copy shares storage with the original")
	}

	d := a.Copy()
	d.SubtractScaled(&b, 2)
	if d.Get(1, 1) != 32 {
		t.Errorf("SubtractScaled(2) = %v, want 32", d.Get(1, 1))
	}

	e := a.Copy()
	e.Divide(&b)
	if e.Get(1, 0) != 10 {
		t.Errorf("Divide = %v, want 10", e.Get(1, 0))
	}
}

func TestClampAndReplace(t *testing.T) {
	g := gridOf(t, 2, 2, -5, 0, 3, -0.5)
	g.ClampMin(0)
	min, _, _ := g.MinMaxMean()
	if min != 0 {
		t.Errorf("min after clamp = %v", min)
	}

	f := gridOf(t, 2, 2, 0, -1, 2, 4)
	if n := f.ReplaceAtOrBelow(0, 0.5); n != 2 {
		t.Errorf("replaced %d values, want 2", n)
	}
	if f.Get(0, 0) != 0.5 || f.Get(1, 0) != 0.5 || f.Get(0, 1) != 2 {
		t.Errorf("unexpected values %v", f.Values())
	}
}

func TestHasNonFinite(t *testing.T) {
	g := gridOf(t, 2, 1, 1, 2)
	if g.HasNonFinite() {
		t.Errorf("finite grid reported non-finite")
	}
	g.Set(1, 0, math.Inf(1))
	if !g.HasNonFinite() {
		t.Errorf("Inf not detected")
	}
}

func TestDownSample(t *testing.T) {
	g := gridOf(t, 4, 2, 1, 3, 5, 7, 1, 3, 5, 7)
	s := g.DownSample()
	if s.Dx() != 2 || s.Dy() != 1 {
		t.Fatalf("downsampled dims %s", s.Shape())
	}
	if s.Get(0, 0) != 2 || s.Get(1, 0) != 6 {
		t.Errorf("downsampled values %v", s.Values())
	}
}

func TestFindMinMaxAtPercentile(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[99-i] = float64(i)
	}
	g := gridOf(t, 10, 10, vals...)
	lo, hi := g.FindMinMaxAtPercentile(0.05, 0.95)
	if lo != 5 || hi != 95 {
		t.Errorf("percentiles = %v,%v want 5,95", lo, hi)
	}
}

func TestRenderUnknownColormap(t *testing.T) {
	g := gridOf(t, 1, 1, 1)
	opts := DefaultRenderOptions()
	opts.Colormap = "viridis"
	if _, err := g.Render(opts); err == nil {
		t.Errorf("expected error for unknown colormap")
	}
}

func TestRenderStretchesAndShrinks(t *testing.T) {
	g := NewFloatGrid(8, 8)
	for i := range g.Values() {
		g.Values()[i] = float64(i)
	}
	opts := DefaultRenderOptions()
	opts.MaxDim = 4
	opts.Gamma = false
	img, err := g.Render(opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("rendered bounds %v, want 4x4", b)
	}

	opts.Colormap = "gray_r"
	inv, _ := g.Render(opts)
	r1, _, _, _ := img.At(0, 0).RGBA()
	r2, _, _, _ := inv.At(0, 0).RGBA()
	if r1 >= r2 {
		t.Errorf("gray_r should invert the darkest pixel, got %x vs %x", r1, r2)
	}
}
