package ccd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abworrall/ccdcal/pkg/emath"
)

// DefaultUnit is the working intensity unit, analog-to-digital units.
const DefaultUnit = "adu"

// A Role says what kind of exposure a frame is.
type Role string

const (
	Light Role = "light"
	Bias  Role = "bias"
	Dark  Role = "dark"
	Flat  Role = "flat"
)

var CalibrationRoles = []Role{Bias, Dark, Flat}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light", "lights":
		return Light, nil
	case "bias", "biases":
		return Bias, nil
	case "dark", "darks":
		return Dark, nil
	case "flat", "flats":
		return Flat, nil
	}
	return "", fmt.Errorf("no frame role named '%s'", s)
}

// Title is the role as used in logs and IMAGETYP, e.g. "Bias".
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// A Frame holds the pixels of one exposure plus the metadata that
// travels with them.
type Frame struct {
	LoadFilename string // where it came from, if anywhere
	Unit         string
	Header       Header

	emath.FloatGrid
}

func NewFrame(grid emath.FloatGrid, unit string) Frame {
	if unit == "" {
		unit = DefaultUnit
	}
	return Frame{Unit: unit, Header: NewHeader(), FloatGrid: grid}
}

// Copy is a deep copy; the pixels and the header are not shared.
func (f Frame) Copy() Frame {
	return Frame{
		LoadFilename: f.LoadFilename,
		Unit:         f.Unit,
		Header:       f.Header.Copy(),
		FloatGrid:    *f.FloatGrid.Copy(),
	}
}

func (f Frame) Filename() string {
	if f.LoadFilename == "" {
		return "<memory>"
	}
	return filepath.Base(f.LoadFilename)
}

func (f Frame) String() string {
	return fmt.Sprintf("%s: %s %s", f.Filename(), f.Shape(), f.Unit)
}

// CheckShape returns a *ShapeMismatchError if other's dimensions differ.
func (f *Frame) CheckShape(other *Frame) error {
	if !f.SameShape(&other.FloatGrid) {
		return &ShapeMismatchError{
			Filename: other.Filename(),
			Want:     f.Shape(),
			Got:      other.Shape(),
		}
	}
	return nil
}
