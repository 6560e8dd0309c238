package masters

import (
	"fmt"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/emath"
)

// A CombineFunc reduces the samples for one pixel (one per source frame)
// to a single value. It may reorder samples.
type CombineFunc func(samples []float64, p emath.ClipParams) float64

func GetCombiner(name string) (CombineFunc, error) {
	switch name {
	case "average":
		return emath.ClippedMean, nil
	case "median":
		return emath.ClippedMedian, nil
	default:
		return nil, fmt.Errorf("no combine method named '%s'", name)
	}
}

// {{{ rowsPerChunk

// rowsPerChunk works out how many image rows of samples fit in the
// memory limit, with every frame contributing a float64 per pixel.
func rowsPerChunk(w, h, n int, memLimit int64) int {
	rowBytes := int64(w) * int64(n) * 8
	if rowBytes <= 0 || memLimit <= 0 {
		return h
	}
	rows := int(memLimit / rowBytes)
	if rows < 1 {
		rows = 1
	}
	if rows > h {
		rows = h
	}
	return rows
}

// }}}
// {{{ combine

// combine builds the output grid a chunk of rows at a time. Within a
// chunk the samples are transposed so each pixel's stack is contiguous.
func combine(frames []ccd.Frame, fn CombineFunc, p emath.ClipParams, memLimit int64) emath.FloatGrid {
	w, h, n := frames[0].Dx(), frames[0].Dy(), len(frames)
	out := emath.NewFloatGrid(w, h)
	chunk := rowsPerChunk(w, h, n, memLimit)

	buf := make([]float64, chunk*w*n)
	for y0 := 0; y0 < h; y0 += chunk {
		y1 := y0 + chunk
		if y1 > h {
			y1 = h
		}

		base := y0 * w
		npix := (y1 - y0) * w
		for i := range frames {
			vals := frames[i].Values()
			for px := 0; px < npix; px++ {
				buf[px*n+i] = vals[base+px]
			}
		}

		outVals := out.Values()
		for px := 0; px < npix; px++ {
			outVals[base+px] = fn(buf[px*n:(px+1)*n], p)
		}
	}

	return out
}

// }}}
