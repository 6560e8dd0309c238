package ccd

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/ccdcal/pkg/emath"
)

// readTIFF loads a TIFF as a grayscale frame in [0, 0xFFFF]. Color
// images are reduced to luminance. If EXIF data is present, the
// exposure time and ISO are copied into the header.
func readTIFF(filename string) (Frame, error) {
	f := Frame{Header: NewHeader()}

	// EXIF is optional; plenty of CCD software writes bare TIFFs.
	if reader, err := os.Open(filename); err != nil {
		return f, fmt.Errorf("open+r exif '%s': %v", filename, err)
	} else {
		if ex, err := exif.Decode(reader); err == nil {
			exifToHeader(ex, &f.Header)
		}
		reader.Close()
	}

	// Re-open the file, now for the image data
	reader, err := os.Open(filename)
	if err != nil {
		return f, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return f, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}

	f.FloatGrid = grayGrid(img)
	return f, nil
}

func exifToHeader(ex *exif.Exif, h *Header) {
	if tag, err := ex.Get(exif.ExposureTime); err == nil {
		if num, denom, err := tag.Rat2(0); err == nil && denom != 0 {
			h.Set("EXPTIME", float64(num)/float64(denom), "[s] exposure time, from EXIF")
		}
	}
	if tag, err := ex.Get(exif.ISOSpeedRatings); err == nil {
		if val, err := tag.Int64(0); err == nil {
			h.Set("ISO", val, "ISO speed, from EXIF")
		}
	}
	if tm, err := ex.DateTime(); err == nil {
		h.Set("DATE-OBS", tm.Format("2006-01-02T15:04:05"), "from EXIF")
	}
}

func grayGrid(img image.Image) emath.FloatGrid {
	b := img.Bounds()
	g := emath.NewFloatGrid(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			g.Set(x-b.Min.X, y-b.Min.Y, float64(gray.Y))
		}
	}
	return g
}
