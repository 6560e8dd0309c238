package ccd

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// hdrFrame presents a frame as a gray hdr.Image, with values scaled so
// the brightest pixel is 1.0.
type hdrFrame struct {
	f     *Frame
	scale float64
}

// Implement golang's image.Image interface
func (h hdrFrame) ColorModel() color.Model { return hdrcolor.RGBModel }
func (h hdrFrame) Bounds() image.Rectangle { return image.Rect(0, 0, h.f.Dx(), h.f.Dy()) }
func (h hdrFrame) At(x, y int) color.Color { return h.HDRAt(x, y) }

// Implement hdr.Image interface
func (h hdrFrame) HDRAt(x, y int) hdrcolor.Color {
	v := h.f.Get(x, y) * h.scale
	if v < 0 {
		v = 0
	}
	return hdrcolor.RGB{R: v, G: v, B: v}
}
func (h hdrFrame) Size() int { return h.f.Len() }

// WriteHDR outputs the frame as a Radiance RGBE file, which keeps the
// full dynamic range for HDR viewers.
func WriteHDR(f Frame, filename string) error {
	if f.Empty() {
		return fmt.Errorf("WriteHDR %s: %w", filename, ErrEmptyInput)
	}

	_, max, _ := f.MinMaxMean()
	scale := 1.0
	if max > 0 {
		scale = 1.0 / max
	}

	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("WriteHDR, open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, hdrFrame{f: &f, scale: scale}); err != nil {
		return fmt.Errorf("WriteHDR, encoding RGBE file: %v", err)
	}
	return nil
}
