package calibrate

import (
	"fmt"

	"github.com/abworrall/ccdcal/pkg/ccd"
)

// StatusCode lists the applied corrections in the order B, D, F; for
// example "BF" when there was no dark.
func StatusCode(bias, dark, flat bool) string {
	code := ""
	if bias {
		code += "B"
	}
	if dark {
		code += "D"
	}
	if flat {
		code += "F"
	}
	return code
}

// Provenance records what was done to one light frame.
type Provenance struct {
	RunID     string
	Bias      bool
	Dark      bool
	Flat      bool
	Counts    map[ccd.Role]int // NCOMBINE of each applied master, when known
	DarkScale float64
	LightExp  float64
	DarkExp   float64
	Clamped   int // pixels raised to zero
	FlatFixed int // flat pixels <= 0 that were replaced
}

func (p Provenance) Status() string { return StatusCode(p.Bias, p.Dark, p.Flat) }

func (p Provenance) fromFrames(role ccd.Role) string {
	if n, ok := p.Counts[role]; ok && n > 0 {
		return fmt.Sprintf("%d frames", n)
	}
	return "unknown frames"
}

// Write adds CALSTAT and the HISTORY lines to the header.
func (p Provenance) Write(h *ccd.Header) {
	h.Set("CALSTAT", p.Status(), "calibration applied: B=bias D=dark F=flat")

	if p.Bias {
		h.AddHistory("Bias subtracted, master bias from %s", p.fromFrames(ccd.Bias))
	}
	if p.Dark {
		h.AddHistory("Dark subtracted, master dark from %s", p.fromFrames(ccd.Dark))
		h.AddHistory("Dark scaled by %.4f (light %gs / dark %gs)", p.DarkScale, p.LightExp, p.DarkExp)
	}
	if p.Flat {
		h.AddHistory("Flat fielded, master flat from %s", p.fromFrames(ccd.Flat))
		if p.FlatFixed > 0 {
			h.AddHistory("%d flat pixels <= 0 replaced by 1%% of flat median", p.FlatFixed)
		}
	}
	if p.Clamped > 0 {
		h.AddHistory("%d negative pixels clamped to 0", p.Clamped)
	}
	if p.RunID != "" {
		h.AddHistory("Calibration run %s", p.RunID)
	}
}

// ncombine reads the NCOMBINE card of a master, or 0.
func ncombine(f *ccd.Frame) int {
	v, exists := f.Header.Get("NCOMBINE")
	if !exists {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
