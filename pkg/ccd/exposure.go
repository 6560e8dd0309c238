package ccd

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
)

// ExposureKeys are tried in order; camera firmware and capture
// software do not agree on a name.
var ExposureKeys = []string{"EXPTIME", "EXPOSURE", "EXP TIME", "EXPTIME1"}

// DefaultExposure is used when nothing better can be found.
const DefaultExposure = 1.0

var (
	numberRegexp       = regexp.MustCompile(`(\d+\.?\d*)`)
	filenameExpoRegexp = regexp.MustCompile(`(\d+\.?\d*)[sS]`)
)

// ExposureTime finds the exposure of a frame, in seconds, along with a
// note on where it came from. It never fails: header keys first, then
// a "30s"-style token in the filename, then DefaultExposure.
func ExposureTime(f Frame) (float64, string) {
	for _, key := range ExposureKeys {
		v, exists := f.Header.Get(key)
		if !exists {
			continue
		}
		if secs, ok := exposureValue(v); ok {
			return secs, "header " + key
		}
	}

	if f.LoadFilename != "" {
		if m := filenameExpoRegexp.FindStringSubmatch(filepath.Base(f.LoadFilename)); m != nil {
			if secs, err := strconv.ParseFloat(m[1], 64); err == nil && secs > 0 {
				return secs, "filename"
			}
		}
	}

	return DefaultExposure, "default"
}

// exposureValue turns a header value into positive seconds; text values
// yield their first numeric token.
func exposureValue(v interface{}) (float64, bool) {
	var secs float64
	switch val := v.(type) {
	case float64:
		secs = val
	case float32:
		secs = float64(val)
	case int:
		secs = float64(val)
	case int64:
		secs = float64(val)
	case int32:
		secs = float64(val)
	case string:
		m := numberRegexp.FindString(val)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		secs = f
	default:
		return 0, false
	}

	if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, false
	}
	return secs, true
}
