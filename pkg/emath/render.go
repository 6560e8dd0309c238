package emath

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"github.com/lucasb-eyer/go-colorful"
)

// RenderOptions controls how a grid of arbitrary floats becomes an 8-bit picture.
type RenderOptions struct {
	LowPercentile  float64 // values at or below this percentile become black, in [0,1]
	HighPercentile float64 // values at or above this become white
	Colormap       string  // see Colormaps
	Gamma          bool    // apply sRGB gamma expansion after stretching
	MaxDim         int     // downsample until both dimensions fit, 0 for no limit
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{LowPercentile: 0.05, HighPercentile: 0.95, Colormap: "gray", Gamma: true, MaxDim: 2048}
}

// A Colormap maps a stretched value in [0,1] onto a color.
type Colormap func(float64) colorful.Color

var heatStops = []colorful.Color{
	{R: 0, G: 0, B: 0},
	{R: 0.55, G: 0.05, B: 0.0},
	{R: 0.95, G: 0.45, B: 0.05},
	{R: 1.0, G: 0.9, B: 0.35},
	{R: 1, G: 1, B: 1},
}

var Colormaps = map[string]Colormap{
	"gray":   func(v float64) colorful.Color { return colorful.Color{R: v, G: v, B: v} },
	"gray_r": func(v float64) colorful.Color { return colorful.Color{R: 1 - v, G: 1 - v, B: 1 - v} },
	"heat": func(v float64) colorful.Color {
		seg := v * float64(len(heatStops)-1)
		i := int(math.Floor(seg))
		if i >= len(heatStops)-1 {
			return heatStops[len(heatStops)-1]
		}
		return heatStops[i].BlendLab(heatStops[i+1], seg-float64(i)).Clamped()
	},
}

func ListColormaps() string {
	names := []string{}
	for k := range Colormaps {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}

// Render stretches the grid between the two percentiles and maps it
// through the colormap.
func (fg *FloatGrid) Render(opts RenderOptions) (*image.RGBA64, error) {
	cmap, exists := Colormaps[opts.Colormap]
	if !exists {
		return nil, fmt.Errorf("no colormap named '%s', have %s", opts.Colormap, ListColormaps())
	}

	src := fg
	for opts.MaxDim > 0 && (src.Dx() > opts.MaxDim || src.Dy() > opts.MaxDim) && src.Dx() > 1 && src.Dy() > 1 {
		small := src.DownSample()
		src = &small
	}

	min, max := src.FindMinMaxAtPercentile(opts.LowPercentile, opts.HighPercentile)
	span := max - min
	if span <= 0 {
		span = 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{src.Dx(), src.Dy()}})
	for x := 0; x < src.Dx(); x++ {
		for y := 0; y < src.Dy(); y++ {
			v := Clamp01((src.Get(x, y) - min) / span)
			if opts.Gamma {
				v = GammaExpand_F64(v)
			}
			r, g, b := cmap(v).RGB255()
			img.Set(x, y, color.RGBA{r, g, b, 0xff})
		}
	}

	return img, nil
}

// ToImg saves the rendered grid as a PNG, with the title written in the top left.
func (fg *FloatGrid) ToImg(title, filename string, opts RenderOptions) error {
	img, err := fg.Render(opts)
	if err != nil {
		return err
	}

	dc := gg.NewContextForImage(img)
	if title != "" {
		dc.SetRGB(0, 1, 0)
		dc.DrawString(title, 10, 20)
	}
	return dc.SavePNG(filename)
}
