package emath

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// MADToSigma turns a median absolute deviation into the standard
// deviation of a normal distribution with the same spread.
const MADToSigma = 1.4826

// Median of the values, NaN if there are none. The input is not reordered.
func Median(v []float64) float64 {
	m, err := stats.Median(v)
	if err != nil {
		return math.NaN()
	}
	return m
}

// RobustCenterScale returns the median and MAD*1.4826 of the values.
func RobustCenterScale(v []float64) (float64, float64) {
	center, err := stats.Median(v)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	mad, err := stats.MedianAbsoluteDeviation(v)
	if err != nil {
		return center, math.NaN()
	}
	return center, mad * MADToSigma
}

// ClipParams controls SigmaClip. Low and High are in robust sigma
// units either side of the median. MaxIters <= 0 iterates until no
// more samples get rejected.
type ClipParams struct {
	Low      float64
	High     float64
	MaxIters int
}

// SigmaClip rejects outliers from samples, returning the survivors.
// The survivors are packed into the front of samples, so the caller's
// slice is reordered. NaNs are always rejected.
func SigmaClip(samples []float64, p ClipParams) []float64 {
	kept := samples[:0]
	for _, v := range samples {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}

	for iter := 0; p.MaxIters <= 0 || iter < p.MaxIters; iter++ {
		if len(kept) < 2 {
			break
		}

		center, scale := RobustCenterScale(kept)
		if math.IsNaN(scale) {
			break
		}
		lo, hi := center-p.Low*scale, center+p.High*scale

		n := 0
		for _, v := range kept {
			if v >= lo && v <= hi {
				kept[n] = v
				n++
			}
		}
		if n == len(kept) || n == 0 {
			break
		}
		kept = kept[:n]
	}

	return kept
}

// ClippedMean is the mean of the samples that survive clipping.
func ClippedMean(samples []float64, p ClipParams) float64 {
	kept := SigmaClip(samples, p)
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}

// ClippedMedian is the median of the samples that survive clipping.
func ClippedMedian(samples []float64, p ClipParams) float64 {
	return Median(SigmaClip(samples, p))
}
