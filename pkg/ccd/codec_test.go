package ccd

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/abworrall/ccdcal/pkg/emath"
)

func testFrame(t *testing.T, w, h int) Frame {
	t.Helper()
	vals := make([]float64, w*h)
	for i := range vals {
		vals[i] = float64(i)*1.25 - 3
	}
	g, err := emath.NewFloatGridFromValues(w, h, vals)
	if err != nil {
		t.Fatal(err)
	}
	return NewFrame(g, "")
}

func TestFITSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fits")

	f := testFrame(t, 7, 5)
	f.Header.Set("OBJECT", "M42", "target")
	f.Header.Set("EXPTIME", 30.0, "[s]")

	codec := FileCodec{}
	if err := codec.Write(f, path, false); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := codec.Read(path, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Dx() != 7 || got.Dy() != 5 {
		t.Fatalf("shape = %s", got.Shape())
	}
	if !reflect.DeepEqual(got.Values(), f.Values()) {
		t.Errorf("pixels changed:\n got %v\nwant %v", got.Values(), f.Values())
	}
	if s := got.Header.GetString("OBJECT"); s != "M42" {
		t.Errorf("OBJECT = %q", s)
	}
	if secs, _ := ExposureTime(got); secs != 30 {
		t.Errorf("exposure = %v", secs)
	}
	if got.Unit != DefaultUnit || got.LoadFilename != path {
		t.Errorf("unit/filename = %s/%s", got.Unit, got.LoadFilename)
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.fits")
	f := testFrame(t, 2, 2)

	codec := FileCodec{}
	if err := codec.Write(f, path, false); err != nil {
		t.Fatal(err)
	}
	if err := codec.Write(f, path, false); err == nil {
		t.Errorf("second write without overwrite should fail")
	}
	if err := codec.Write(f, path, true); err != nil {
		t.Errorf("overwrite: %v", err)
	}
	if err := codec.Write(f, filepath.Join(t.TempDir(), "out.png"), true); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("png write err = %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	codec := FileCodec{}

	_, err := codec.Read(filepath.Join(t.TempDir(), "missing.fits"), "")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Errorf("missing file: err = %v, want *LoadError", err)
	}

	junk := filepath.Join(t.TempDir(), "junk.jpg")
	os.WriteFile(junk, []byte("hello"), 0644)
	if _, err := codec.Read(junk, ""); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("jpg: err = %v", err)
	}
}

func TestReadTIFF(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	for i := 0; i < 6; i++ {
		img.SetGray16(i%3, i/3, color.Gray16{Y: uint16(1000 * (i + 1))})
	}

	path := filepath.Join(t.TempDir(), "light_10s.tif")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(w, img, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()

	f, err := FileCodec{}.Read(path, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []float64{1000, 2000, 3000, 4000, 5000, 6000}
	if !reflect.DeepEqual(f.Values(), want) {
		t.Errorf("pixels = %v, want %v", f.Values(), want)
	}
	if secs, source := ExposureTime(f); secs != 10 || source != "filename" {
		t.Errorf("exposure = %v (%s)", secs, source)
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "night1")
	os.Mkdir(sub, 0755)
	for _, name := range []string{"b.fits", "a.FIT", "notes.txt", "night1/c.tiff"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}

	got, err := ExpandPaths(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.FIT"), filepath.Join(dir, "b.fits"), filepath.Join(sub, "c.tiff")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}

	if _, err := ExpandPaths(filepath.Join(dir, "nope")); err == nil {
		t.Errorf("expected error for missing path")
	}
}

func TestFrameCheckShape(t *testing.T) {
	a, b := testFrame(t, 4, 4), testFrame(t, 4, 3)
	b.LoadFilename = "/x/odd.fits"

	err := a.CheckShape(&b)
	var sme *ShapeMismatchError
	if !errors.As(err, &sme) || sme.Filename != "odd.fits" || sme.Want != "4x4" || sme.Got != "4x3" {
		t.Errorf("err = %#v", err)
	}

	c := a.Copy()
	c.Set(0, 0, 999)
	if a.Get(0, 0) == 999 {
		t.Errorf("copy shares pixels")
	}
}
