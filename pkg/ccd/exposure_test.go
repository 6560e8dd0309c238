package ccd

import (
	"math"
	"testing"
)

func TestExposureTime(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		cards    map[string]interface{}
		want     float64
		source   string
	}{
		{"exptime", "", map[string]interface{}{"EXPTIME": 120.0}, 120, "header EXPTIME"},
		{"int", "", map[string]interface{}{"EXPOSURE": 60}, 60, "header EXPOSURE"},
		{"text", "", map[string]interface{}{"EXP TIME": "45.5 sec"}, 45.5, "header EXP TIME"},
		{"zero skipped", "", map[string]interface{}{"EXPTIME": 0.0, "EXPTIME1": 10.0}, 10, "header EXPTIME1"},
		{"nan skipped", "frame_30s.fits", map[string]interface{}{"EXPTIME": math.NaN()}, 30, "filename"},
		{"filename", "/data/frame_30s.fits", nil, 30, "filename"},
		{"fractional filename", "dark_0.5S_001.fit", nil, 0.5, "filename"},
		{"default", "frame.fits", nil, DefaultExposure, "default"},
		{"memory", "", nil, DefaultExposure, "default"},
	}

	for _, test := range tests {
		f := Frame{LoadFilename: test.filename, Header: NewHeader()}
		for _, k := range ExposureKeys {
			if v, exists := test.cards[k]; exists {
				f.Header.Set(k, v, "")
			}
		}

		got, source := ExposureTime(f)
		if got != test.want || source != test.source {
			t.Errorf("%s: got %v (%s), want %v (%s)", test.name, got, source, test.want, test.source)
		}
	}
}
