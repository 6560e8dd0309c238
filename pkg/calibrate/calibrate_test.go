package calibrate

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/emath"
	"github.com/abworrall/ccdcal/pkg/integrity"
)

type memReader map[string]ccd.Frame

func (m memReader) Read(path, unit string) (ccd.Frame, error) {
	f, exists := m[path]
	if !exists {
		return ccd.Frame{}, &ccd.LoadError{Filename: path, Err: os.ErrNotExist}
	}
	f = f.Copy()
	f.LoadFilename = path
	return f, nil
}

func constFrame(w, h int, v float64) *ccd.Frame {
	g := emath.NewFloatGrid(w, h)
	vals := g.Values()
	for i := range vals {
		vals[i] = v
	}
	f := ccd.NewFrame(g, "")
	return &f
}

func quiet() func(string, ...interface{}) { return func(string, ...interface{}) {} }

func TestStatusCode(t *testing.T) {
	tests := []struct {
		b, d, f bool
		want    string
	}{
		{true, true, true, "BDF"},
		{true, true, false, "BD"},
		{false, false, true, "F"},
		{true, false, true, "BF"},
		{false, false, false, ""},
	}
	for _, test := range tests {
		if got := StatusCode(test.b, test.d, test.f); got != test.want {
			t.Errorf("StatusCode(%v,%v,%v) = %q, want %q", test.b, test.d, test.f, got, test.want)
		}
	}
}

func TestCalibrateFullChain(t *testing.T) {
	light := constFrame(4, 4, 1100)
	light.Header.Set("EXPTIME", 60.0, "")

	bias := constFrame(4, 4, 100)
	bias.Header.Set("NCOMBINE", 10, "")
	dark := constFrame(4, 4, 20)
	dark.Header.Set("EXPTIME", 30.0, "")
	flat := constFrame(4, 4, 1.0)
	flat.Set(0, 0, 0.5)

	c := Calibrator{
		Reader: memReader{"l1.fits": *light},
		Bias:   bias, Dark: dark, Flat: flat,
		Logf: quiet(),
	}
	out, err := c.Calibrate(context.Background(), []string{"l1.fits"})
	if err != nil {
		t.Fatal(err)
	}

	f := out[0]
	// (1100 - 100 - 20*2) / 1
	if v := f.Get(1, 1); v != 960 {
		t.Errorf("pixel = %v, want 960", v)
	}
	if v := f.Get(0, 0); v != 1920 {
		t.Errorf("pixel under half-sensitive flat = %v, want 1920", v)
	}
	if s := f.Header.GetString("CALSTAT"); s != "BDF" {
		t.Errorf("CALSTAT = %q", s)
	}

	hist := strings.Join(f.Header.History(), "\n")
	for _, want := range []string{"master bias from 10 frames", "Dark scaled by 2.0000", "Calibration run "} {
		if !strings.Contains(hist, want) {
			t.Errorf("history lacks %q:\n%s", want, hist)
		}
	}
	if f.Header.GetString("SOFTWARE") != integrity.DefaultSoftware || f.Header.GetString("CREATED") == "" {
		t.Errorf("identity cards missing:\n%s", f.Header)
	}
	if f.Header.Has("DATACHECK") {
		t.Errorf("no stamper, but DATACHECK written")
	}
}

func TestCalibratePartialStatus(t *testing.T) {
	r := memReader{"a.fits": *constFrame(3, 3, 500)}

	c := Calibrator{Reader: r, Flat: constFrame(3, 3, 2), Logf: quiet()}
	out, err := c.Calibrate(context.Background(), []string{"a.fits"})
	if err != nil {
		t.Fatal(err)
	}
	if s := out[0].Header.GetString("CALSTAT"); s != "F" {
		t.Errorf("CALSTAT = %q, want F", s)
	}
	if v := out[0].Get(0, 0); v != 250 {
		t.Errorf("pixel = %v", v)
	}

	c = Calibrator{Reader: r, Bias: constFrame(3, 3, 10), Dark: constFrame(3, 3, 5), Logf: quiet()}
	out, err = c.Calibrate(context.Background(), []string{"a.fits"})
	if err != nil {
		t.Fatal(err)
	}
	if s := out[0].Header.GetString("CALSTAT"); s != "BD" {
		t.Errorf("CALSTAT = %q, want BD", s)
	}
	// both exposures default to 1s
	if v := out[0].Get(2, 2); v != 485 {
		t.Errorf("pixel = %v, want 485", v)
	}
}

func TestCalibrateClampsAndGuardsFlat(t *testing.T) {
	light := constFrame(4, 4, 50)
	flat := constFrame(4, 4, 1.0)
	flat.Set(1, 1, 0)
	flat.Set(2, 2, -3)

	c := Calibrator{
		Reader: memReader{"l.fits": *light},
		Bias:   constFrame(4, 4, 80),
		Flat:   flat,
		Logf:   quiet(),
	}
	out, err := c.Calibrate(context.Background(), []string{"l.fits"})
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range out[0].Values() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("pixel %d = %v", i, v)
		}
	}
	if flat.Get(1, 1) != 0 || flat.Get(2, 2) != -3 {
		t.Errorf("master flat was modified")
	}
}

func TestCalibrateOrderAndProgress(t *testing.T) {
	r := memReader{}
	paths := []string{"c.fits", "a.fits", "b.fits"}
	for i, p := range paths {
		r[p] = *constFrame(2, 2, float64(i+1))
	}

	calls := []int{}
	c := Calibrator{
		Reader:   r,
		Logf:     quiet(),
		Stamper:  integrity.NewStamper(integrity.DefaultIdentity()),
		Progress: func(done, total int, f ccd.Frame) { calls = append(calls, done) },
	}
	out, err := c.Calibrate(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}

	for i, f := range out {
		if f.LoadFilename != paths[i] || f.Get(0, 0) != float64(i+1) {
			t.Errorf("out[%d] = %s (%v)", i, f, f.Get(0, 0))
		}
		if res := integrity.Verify(f.Header, &f.FloatGrid); res.Validity != integrity.Valid {
			t.Errorf("out[%d] not verifiable: %+v", i, res)
		}
	}
	if len(calls) != 3 || calls[2] != 3 {
		t.Errorf("progress calls = %v", calls)
	}
}

func TestCalibrateErrors(t *testing.T) {
	r := memReader{"ok.fits": *constFrame(4, 4, 10), "small.fits": *constFrame(2, 2, 10)}

	c := Calibrator{Reader: r, Logf: quiet()}
	if _, err := c.Calibrate(context.Background(), nil); !errors.Is(err, ccd.ErrEmptyInput) {
		t.Errorf("empty: err = %v", err)
	}

	out, err := c.Calibrate(context.Background(), []string{"ok.fits", "gone.fits"})
	var le *ccd.LoadError
	if !errors.As(err, &le) || le.Filename != "gone.fits" || out != nil {
		t.Errorf("missing: out=%v err = %v", out, err)
	}

	c.Bias = constFrame(4, 4, 1)
	_, err = c.Calibrate(context.Background(), []string{"ok.fits", "small.fits"})
	var sme *ccd.ShapeMismatchError
	if !errors.As(err, &sme) || sme.Filename != "small.fits" {
		t.Errorf("shape: err = %v", err)
	}

	c = Calibrator{Reader: r, Flat: constFrame(4, 4, -1), Logf: quiet()}
	_, err = c.Calibrate(context.Background(), []string{"ok.fits"})
	var ce *ccd.CalibrationError
	if !errors.As(err, &ce) || ce.Step != "flat" {
		t.Errorf("bad flat: err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c = Calibrator{Reader: r, Logf: quiet()}
	if _, err := c.Calibrate(ctx, []string{"ok.fits"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v", err)
	}
}

func TestCalibrateCleansHeader(t *testing.T) {
	light := constFrame(2, 2, 5)
	light.Header.Set("OBSERVER", "Müller", "")

	s := integrity.NewStamper(integrity.Identity{Software: "x", Version: "2"})
	s.Now = func() time.Time { return time.Unix(0, 0) }

	c := Calibrator{Reader: memReader{"l.fits": *light}, Stamper: s, Logf: quiet()}
	out, err := c.Calibrate(context.Background(), []string{"l.fits"})
	if err != nil {
		t.Fatal(err)
	}
	if got := out[0].Header.GetString("OBSERVER"); got != "M?ller" {
		t.Errorf("OBSERVER = %q", got)
	}
	if got := out[0].Header.GetString("CREATED"); got != "1970-01-01T00:00:00" {
		t.Errorf("CREATED = %q", got)
	}
	if got := out[0].Header.GetString("CALSTAT"); got != "" {
		t.Errorf("CALSTAT = %q, want empty", got)
	}
}
