// Package masters combines stacks of calibration exposures into master
// bias, dark and flat frames.
package masters

import (
	"fmt"
	"log"
	"math"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/emath"
)

const (
	DefaultMemLimit = 360e6 // bytes of sample buffer per combine
	DefaultMaxIters = 5
)

type Options struct {
	Unit      string
	MemLimit  int64
	MaxIters  int     // clipping passes; <= 0 means until nothing is rejected
	ClipSigma float64 // overrides the per-role default when > 0
	Logf      func(format string, args ...interface{})
}

func DefaultOptions() Options {
	return Options{
		Unit:     ccd.DefaultUnit,
		MemLimit: DefaultMemLimit,
		MaxIters: DefaultMaxIters,
		Logf:     log.Printf,
	}
}

func (o *Options) finalize() {
	if o.Unit == "" {
		o.Unit = ccd.DefaultUnit
	}
	if o.MemLimit == 0 {
		o.MemLimit = DefaultMemLimit
	}
	if o.Logf == nil {
		o.Logf = log.Printf
	}
}

// How each role is combined.
type method struct {
	Name  string
	Sigma float64
}

var roleMethods = map[ccd.Role]method{
	ccd.Bias: {"average", 5.0},
	ccd.Dark: {"average", 5.0},
	ccd.Flat: {"median", 3.0},
}

// Keys that describe a specific file's pixels, and so are wrong on a master.
var staleKeys = []string{"DATACHECK", "PIXSUM", "DATAMIN", "DATAMAX", "DATAMEAN", "CALSTAT", "CREATED"}

func BuildBias(frames []ccd.Frame, opts Options) (ccd.Frame, error) {
	return Build(ccd.Bias, frames, nil, opts)
}

func BuildDark(frames []ccd.Frame, bias *ccd.Frame, opts Options) (ccd.Frame, error) {
	return Build(ccd.Dark, frames, bias, opts)
}

func BuildFlat(frames []ccd.Frame, bias *ccd.Frame, opts Options) (ccd.Frame, error) {
	return Build(ccd.Flat, frames, bias, opts)
}

// Build combines frames into a master for the role. The bias master,
// if not nil, is subtracted from darks and flats first; it is ignored
// when building a bias. Source frames are not modified.
func Build(role ccd.Role, frames []ccd.Frame, bias *ccd.Frame, opts Options) (ccd.Frame, error) {
	opts.finalize()

	m, exists := roleMethods[role]
	if !exists {
		return ccd.Frame{}, fmt.Errorf("build master: no masters for role '%s'", role)
	}
	if opts.ClipSigma > 0 {
		m.Sigma = opts.ClipSigma
	}
	if role == ccd.Bias {
		bias = nil
	}

	if len(frames) == 0 {
		return ccd.Frame{}, fmt.Errorf("build master %s: %w", role, ccd.ErrEmptyInput)
	}
	for i := 1; i < len(frames); i++ {
		if err := frames[0].CheckShape(&frames[i]); err != nil {
			return ccd.Frame{}, err
		}
	}
	if bias != nil {
		if err := frames[0].CheckShape(bias); err != nil {
			return ccd.Frame{}, err
		}
	}

	combiner, err := GetCombiner(m.Name)
	if err != nil {
		return ccd.Frame{}, err
	}

	opts.Logf("Building master %s from %d frames (%s), %s with %.1f sigma clipping\n",
		role, len(frames), frames[0].Shape(), m.Name, m.Sigma)

	inputs, err := prepare(role, frames, bias, opts)
	if err != nil {
		return ccd.Frame{}, err
	}

	clip := emath.ClipParams{Low: m.Sigma, High: m.Sigma, MaxIters: opts.MaxIters}
	master := ccd.NewFrame(combine(inputs, combiner, clip, opts.MemLimit), opts.Unit)

	master.Header = frames[0].Header.Copy()
	for _, k := range staleKeys {
		master.Header.Delete(k)
	}
	master.Header.Set("IMAGETYP", "Master "+role.Title(), "")
	master.Header.Set("NCOMBINE", len(frames), "number of frames combined")
	master.Header.Set("COMBMETH", m.Name, "combination method")
	master.Header.Set("CLIPSIG", m.Sigma, "sigma clipping threshold")
	master.Header.Set("BUNIT", opts.Unit, "physical unit of pixels")
	if role == ccd.Dark {
		master.Header.Set("EXPTIME", meanExposure(frames), "[s] mean exposure of source darks")
	}
	if bias != nil {
		master.Header.AddHistory("Bias subtracted from each %s frame before combining", role)
	}
	if role == ccd.Flat {
		master.Header.AddHistory("Each flat normalized by its own median")
	}
	master.Header.AddHistory("Master %s: %d frames, %s, %.1f sigma clip", role, len(frames), m.Name, m.Sigma)

	return master, nil
}

// prepare applies the per-role corrections to copies of the sources.
func prepare(role ccd.Role, frames []ccd.Frame, bias *ccd.Frame, opts Options) ([]ccd.Frame, error) {
	if bias == nil && role != ccd.Flat {
		return frames, nil
	}

	out := make([]ccd.Frame, len(frames))
	for i := range frames {
		f := frames[i].Copy()

		if bias != nil {
			f.Subtract(&bias.FloatGrid)
		}

		if role == ccd.Flat {
			med := f.Median()
			if med <= 0 || math.IsNaN(med) || math.IsInf(med, 0) {
				return nil, &ccd.CalibrationError{
					Filename: f.Filename(),
					Step:     "normalize",
					Err:      fmt.Errorf("flat median is %v", med),
				}
			}
			f.Scale(1.0 / med)
		}

		out[i] = f
	}

	return out, nil
}

func meanExposure(frames []ccd.Frame) float64 {
	total := 0.0
	for _, f := range frames {
		secs, _ := ccd.ExposureTime(f)
		total += secs
	}
	return total / float64(len(frames))
}
