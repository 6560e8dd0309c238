package ccd

import (
	"fmt"
	"log"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/montanaflynn/stats"
)

// MinBrightPixels is the point below which a calibrated light has too
// few stars to register against other frames.
const MinBrightPixels = 100

// Digest is a summary of a frame's pixel values, for logs and reports.
type Digest struct {
	Min, Max  float64
	Mean, Std float64
	Median    float64
	P05, P95  float64
	Bright    int // pixels more than 3 std above the median
	NonFinite int
	NumPixels int
}

// histogram resolution, in units of 1/histScale
const histScale = 100.0

// NewDigest computes the summary. Non-finite values are counted and
// then ignored.
func NewDigest(f Frame) Digest {
	d := Digest{NumPixels: f.Len()}

	vals := make([]float64, 0, f.Len())
	for _, v := range f.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			d.NonFinite++
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return d
	}

	d.Min, _ = stats.Min(vals)
	d.Max, _ = stats.Max(vals)
	d.Mean, _ = stats.Mean(vals)
	d.Std, _ = stats.StandardDeviation(vals)
	d.Median, _ = stats.Median(vals)

	// Quantiles via a histogram; values are shifted so the smallest
	// records as 1, the lowest value the histogram can track.
	span := int64(math.Ceil((d.Max-d.Min)*histScale)) + 2
	h := hdrhistogram.New(1, span, 3)
	for _, v := range vals {
		if err := h.RecordValue(int64((v-d.Min)*histScale) + 1); err != nil {
			log.Printf("digest %s: %v", f.Filename(), err)
			break
		}
	}
	d.P05 = float64(h.ValueAtQuantile(5)-1)/histScale + d.Min
	d.P95 = float64(h.ValueAtQuantile(95)-1)/histScale + d.Min

	if d.Std > 0 {
		thresh := d.Median + 3*d.Std
		for _, v := range vals {
			if v > thresh {
				d.Bright++
			}
		}
	}

	return d
}

func (d Digest) Dim() bool { return d.Bright < MinBrightPixels }

func (d Digest) String() string {
	return fmt.Sprintf("min=%.2f max=%.2f mean=%.2f std=%.2f median=%.2f p05=%.2f p95=%.2f bright=%d nonfinite=%d",
		d.Min, d.Max, d.Mean, d.Std, d.Median, d.P05, d.P95, d.Bright, d.NonFinite)
}
