// Package session ties the pipeline together: it holds the current
// master of each role, and knows where artifacts live on disk.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abworrall/ccdcal/pkg/calibrate"
	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/integrity"
	"github.com/abworrall/ccdcal/pkg/masters"
)

const CalibratedDir = "calibrated"

// Session holds at most one master per role. Building or loading a
// master replaces whatever was there.
type Session struct {
	Config
	Codec ccd.Codec

	Bias *ccd.Frame
	Dark *ccd.Frame
	Flat *ccd.Frame

	Logf func(format string, args ...interface{})
}

func New(c Config, codec ccd.Codec) *Session {
	if codec == nil {
		codec = ccd.FileCodec{}
	}
	return &Session{Config: c, Codec: codec, Logf: log.Printf}
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// {{{ naming

func MasterFilename(role ccd.Role) string { return fmt.Sprintf("master_%s.fits", role) }

// CalibratedFilename is the output name for a light: "calibrated_" plus
// the original name, with non-FITS extensions changed to .fits.
func CalibratedFilename(path string) string {
	name := filepath.Base(path)
	if !ccd.IsFITS(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".fits"
	}
	return "calibrated_" + name
}

func (s *Session) MasterPath(role ccd.Role) string {
	return filepath.Join(s.WorkDir, MasterFilename(role))
}

func (s *Session) CalibratedPath(light string) string {
	return filepath.Join(s.WorkDir, CalibratedDir, CalibratedFilename(light))
}

// }}}
// {{{ masters

func (s *Session) Master(role ccd.Role) *ccd.Frame {
	switch role {
	case ccd.Bias:
		return s.Bias
	case ccd.Dark:
		return s.Dark
	case ccd.Flat:
		return s.Flat
	}
	return nil
}

func (s *Session) setMaster(role ccd.Role, f *ccd.Frame) {
	switch role {
	case ccd.Bias:
		s.Bias = f
	case ccd.Dark:
		s.Dark = f
	case ccd.Flat:
		s.Flat = f
	}
}

// BuildMaster combines the role's configured frames, saves the result
// as the role's master file, and makes it the session's master. Darks
// and flats use the session's bias master, if there is one.
func (s *Session) BuildMaster(role ccd.Role) (*ccd.Frame, error) {
	if role == ccd.Light {
		return nil, fmt.Errorf("build master: lights have no master")
	}

	paths, err := s.expand(role)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("build master %s: %w", role, ccd.ErrEmptyInput)
	}

	frames, err := ccd.LoadAll(s.Codec, s.Unit, paths)
	if err != nil {
		return nil, err
	}

	var bias *ccd.Frame
	if role != ccd.Bias {
		bias = s.Bias
	}
	m, err := masters.Build(role, frames, bias, s.builderOptions(role, s.Logf))
	if err != nil {
		return nil, err
	}

	filename := s.MasterPath(role)
	m.LoadFilename = filename
	if err := s.save(m, filename, true); err != nil {
		return nil, err
	}
	s.logDigest("master "+string(role), m, false)

	if s.Previews {
		png := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".png"
		if err := ccd.WritePreview(m, png, "Master "+role.Title(), s.renderOptions()); err != nil {
			s.logf("preview %s: %v\n", png, err)
		}
	}

	s.setMaster(role, &m)
	return &m, nil
}

// LoadMaster reads a previously saved master back into the session.
func (s *Session) LoadMaster(role ccd.Role) (*ccd.Frame, error) {
	if role == ccd.Light {
		return nil, fmt.Errorf("load master: lights have no master")
	}
	m, err := s.Codec.Read(s.MasterPath(role), s.Unit)
	if err != nil {
		return nil, err
	}
	s.logf("Loaded master %s from %s (%s)\n", role, m.LoadFilename, m.Shape())
	s.setMaster(role, &m)
	return &m, nil
}

// PrepareMasters builds each master that has frames configured, in the
// order bias, dark, flat; with useSaved, roles without frames fall back
// to a master already in the working directory.
func (s *Session) PrepareMasters(useSaved bool) error {
	for _, role := range ccd.CalibrationRoles {
		if len(s.Paths(role)) > 0 {
			if _, err := s.BuildMaster(role); err != nil {
				return err
			}
			continue
		}
		if useSaved {
			if _, err := os.Stat(s.MasterPath(role)); err == nil {
				if _, err := s.LoadMaster(role); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// }}}
// {{{ calibration

// Calibrate runs the lights through the current masters, and writes
// each result into the calibrated directory. It returns the output
// paths, in the order of the lights.
func (s *Session) Calibrate(ctx context.Context, progress func(done, total int, f ccd.Frame)) ([]string, error) {
	lights, err := s.expand(ccd.Light)
	if err != nil {
		return nil, err
	}

	c := calibrate.Calibrator{
		Reader:   s.Codec,
		Unit:     s.Unit,
		Bias:     s.Bias,
		Dark:     s.Dark,
		Flat:     s.Flat,
		Stamper:  integrity.NewStamper(s.identity()),
		Identity: s.identity(),
		Progress: progress,
		Logf:     s.Logf,
	}

	frames, err := c.Calibrate(ctx, lights)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(s.WorkDir, CalibratedDir), 0755); err != nil {
		return nil, fmt.Errorf("calibrated dir: %v", err)
	}

	out := []string{}
	for i, f := range frames {
		filename := s.CalibratedPath(lights[i])
		if err := s.save(f, filename, s.Overwrite); err != nil {
			return nil, err
		}
		s.logDigest(filepath.Base(filename), f, true)

		if s.ExportHDR {
			hdr := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".hdr"
			if err := ccd.WriteHDR(f, hdr); err != nil {
				return nil, err
			}
		}
		out = append(out, filename)
	}

	return out, nil
}

// Run builds the masters and calibrates the lights.
func (s *Session) Run(ctx context.Context, progress func(done, total int, f ccd.Frame)) ([]string, error) {
	if err := s.PrepareMasters(true); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Calibrate(ctx, progress)
}

// Verify checks the given files, or everything in the calibrated
// directory when none are given.
func (s *Session) Verify(paths ...string) (integrity.Summary, error) {
	if len(paths) == 0 {
		paths = []string{filepath.Join(s.WorkDir, CalibratedDir)}
	}
	files, err := ccd.ExpandPaths(paths...)
	if err != nil {
		return integrity.Summary{}, err
	}

	sum := integrity.VerifyFiles(s.Codec, files)
	for _, fr := range sum.Files {
		if fr.LoadErr != nil || fr.Validity == integrity.Invalid || s.Verbosity > 0 {
			s.logf("%s\n", fr)
		}
	}
	return sum, nil
}

// }}}

func (s *Session) identity() integrity.Identity {
	return integrity.Identity{Software: s.Software, Version: s.Version}
}

func (s *Session) expand(role ccd.Role) ([]string, error) {
	if len(s.Paths(role)) == 0 {
		return []string{}, nil
	}
	return ccd.ExpandPaths(s.Paths(role)...)
}

func (s *Session) save(f ccd.Frame, filename string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("mkdir for %s: %v", filename, err)
	}
	if err := s.Codec.Write(f, filename, overwrite); err != nil {
		return err
	}
	s.logf("Wrote %s\n", filename)
	return nil
}

// logDigest logs pixel stats at higher verbosity. For calibrated lights
// it also warns when there are too few stars to register the frame.
func (s *Session) logDigest(what string, f ccd.Frame, isLight bool) {
	if s.Verbosity < 2 && !isLight {
		return
	}
	d := ccd.NewDigest(f)
	if s.Verbosity > 1 {
		s.logf("%s: %s\n", what, d)
	}
	if isLight && d.Dim() {
		s.logf("Warning: %s has only %d bright pixels, registration may fail\n", what, d.Bright)
	}
}
