// Package calibrate applies master bias, dark and flat frames to raw
// light frames.
package calibrate

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/emath"
	"github.com/abworrall/ccdcal/pkg/integrity"
)

// FlatFloor is the fraction of the flat median used in place of flat
// pixels that are zero or negative.
const FlatFloor = 0.01

// A Stamper adds integrity information to a finished frame.
type Stamper interface {
	Stamp(h *ccd.Header, g *emath.FloatGrid) string
}

// Calibrator holds the masters for a batch. Any of them may be nil, in
// which case that step is skipped. The masters are only read.
type Calibrator struct {
	Reader ccd.Reader
	Unit   string

	Bias *ccd.Frame
	Dark *ccd.Frame
	Flat *ccd.Frame

	Stamper  Stamper            // optional
	Identity integrity.Identity // used when there is no Stamper
	RunID    string             // generated if empty

	Progress func(done, total int, f ccd.Frame)
	Logf     func(format string, args ...interface{})
}

func (c *Calibrator) logf(format string, args ...interface{}) {
	if c.Logf != nil {
		c.Logf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// Calibrate processes the lights in order. The first failure stops the
// batch, and no frames are returned.
func (c *Calibrator) Calibrate(ctx context.Context, lights []string) ([]ccd.Frame, error) {
	if len(lights) == 0 {
		return nil, fmt.Errorf("calibrate: %w", ccd.ErrEmptyInput)
	}
	if c.Reader == nil {
		return nil, fmt.Errorf("calibrate: no reader")
	}

	runID := c.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	c.logf("Calibration run %s: %d lights, status %s\n", runID, len(lights),
		StatusCode(c.Bias != nil, c.Dark != nil, c.Flat != nil))

	out := make([]ccd.Frame, 0, len(lights))
	for i, path := range lights {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("calibrate %s: %w", path, err)
		}

		raw, err := c.Reader.Read(path, c.Unit)
		if err != nil {
			return nil, err
		}

		f, prov, err := c.CalibrateFrame(raw)
		if err != nil {
			return nil, err
		}
		prov.RunID = runID
		c.finish(&f, prov)

		c.logf("Calibrated %s [%s]\n", f.Filename(), prov.Status())
		out = append(out, f)
		if c.Progress != nil {
			c.Progress(i+1, len(lights), f)
		}
	}

	return out, nil
}

// CalibrateFrame applies the masters to a copy of the light. The
// returned frame has no provenance written yet.
func (c *Calibrator) CalibrateFrame(light ccd.Frame) (ccd.Frame, Provenance, error) {
	f := light.Copy()
	prov := Provenance{Counts: map[ccd.Role]int{}}
	badBefore := f.CountNonFinite()

	check := func(step string) error {
		if n := f.CountNonFinite(); n > badBefore {
			return &ccd.CalibrationError{
				Filename: f.Filename(),
				Step:     step,
				Err:      fmt.Errorf("%d non-finite pixels", n-badBefore),
			}
		}
		return nil
	}

	if c.Bias != nil {
		if err := c.Bias.CheckShape(&f); err != nil {
			return f, prov, err
		}
		f.Subtract(&c.Bias.FloatGrid)
		if err := check("bias"); err != nil {
			return f, prov, err
		}
		prov.Bias = true
		prov.Counts[ccd.Bias] = ncombine(c.Bias)
	}

	if c.Dark != nil {
		if err := c.Dark.CheckShape(&f); err != nil {
			return f, prov, err
		}
		prov.LightExp, _ = ccd.ExposureTime(f)
		prov.DarkExp, _ = ccd.ExposureTime(*c.Dark)
		prov.DarkScale = prov.LightExp / prov.DarkExp
		f.SubtractScaled(&c.Dark.FloatGrid, prov.DarkScale)
		if err := check("dark"); err != nil {
			return f, prov, err
		}
		prov.Dark = true
		prov.Counts[ccd.Dark] = ncombine(c.Dark)
	}

	if c.Flat != nil {
		if err := c.Flat.CheckShape(&f); err != nil {
			return f, prov, err
		}
		flat := c.Flat.FloatGrid.Copy()
		med := flat.Median()
		if med <= 0 || math.IsNaN(med) || math.IsInf(med, 0) {
			return f, prov, &ccd.CalibrationError{
				Filename: f.Filename(),
				Step:     "flat",
				Err:      fmt.Errorf("master flat median is %v", med),
			}
		}
		prov.FlatFixed = flat.ReplaceAtOrBelow(0, FlatFloor*med)
		f.Divide(flat)
		if err := check("flat"); err != nil {
			return f, prov, err
		}
		prov.Flat = true
		prov.Counts[ccd.Flat] = ncombine(c.Flat)
	}

	for _, v := range f.Values() {
		if v < 0 {
			prov.Clamped++
		}
	}
	f.ClampMin(0)

	return f, prov, nil
}

// finish writes provenance and integrity cards.
func (c *Calibrator) finish(f *ccd.Frame, prov Provenance) {
	prov.Write(&f.Header)
	f.Header.CleanASCII()

	if c.Stamper != nil {
		c.Stamper.Stamp(&f.Header, &f.FloatGrid)
	} else {
		integrity.StampIdentity(&f.Header, c.Identity, time.Now())
	}
}
