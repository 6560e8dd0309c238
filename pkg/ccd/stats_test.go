package ccd

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/abworrall/ccdcal/pkg/emath"
)

func TestDigest(t *testing.T) {
	g := emath.NewFloatGrid(100, 100)
	vals := g.Values()
	for i := range vals {
		vals[i] = 100 + float64(i%5) // 100..104
	}
	for i := 0; i < 150; i++ {
		vals[i*13] = 60000
	}
	vals[7] = math.NaN()

	d := NewDigest(NewFrame(g, ""))
	if d.NonFinite != 1 {
		t.Errorf("nonfinite = %d", d.NonFinite)
	}
	if d.Max != 60000 || d.Min != 100 {
		t.Errorf("range = %v..%v", d.Min, d.Max)
	}
	if d.Bright < 140 || d.Bright > 150 {
		t.Errorf("bright = %d, want ~150", d.Bright)
	}
	if d.Dim() {
		t.Errorf("should not be dim: %s", d)
	}
	if d.P05 < 99.9 || d.P05 > 101.5 {
		t.Errorf("p05 = %v", d.P05)
	}
}

func TestDigestEmptyAndFlat(t *testing.T) {
	if d := NewDigest(Frame{}); d.NumPixels != 0 {
		t.Errorf("empty digest = %s", d)
	}

	g := emath.NewFloatGrid(10, 10)
	if d := NewDigest(NewFrame(g, "")); !d.Dim() || d.Bright != 0 {
		t.Errorf("zero frame digest = %s", d)
	}
}

func TestWriteHDRAndPreview(t *testing.T) {
	dir := t.TempDir()
	f := testFrame(t, 16, 12)

	if err := WriteHDR(f, filepath.Join(dir, "f.hdr")); err != nil {
		t.Errorf("hdr: %v", err)
	}
	if err := WriteHDR(Frame{}, filepath.Join(dir, "empty.hdr")); err == nil {
		t.Errorf("empty frame should fail")
	}
	if err := WritePreview(f, filepath.Join(dir, "f.png"), "", emath.DefaultRenderOptions()); err != nil {
		t.Errorf("preview: %v", err)
	}
}
