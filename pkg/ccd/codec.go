package ccd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// A Reader loads a frame from storage. Failures are *LoadError.
type Reader interface {
	Read(path, unit string) (Frame, error)
}

// A Writer persists a frame. With overwrite false, an existing file is an error.
type Writer interface {
	Write(f Frame, path string, overwrite bool) error
}

type Codec interface {
	Reader
	Writer
}

var (
	FITSExtensions = []string{".fits", ".fit", ".fts"}
	TIFFExtensions = []string{".tif", ".tiff"}
)

func hasExt(filename string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func IsFITS(filename string) bool      { return hasExt(filename, FITSExtensions) }
func IsSupported(filename string) bool { return IsFITS(filename) || hasExt(filename, TIFFExtensions) }

// FileCodec reads FITS and TIFF files, and writes FITS.
type FileCodec struct{}

func (FileCodec) Read(path, unit string) (Frame, error) {
	var f Frame
	var err error

	switch {
	case IsFITS(path):
		f, err = readFITS(path)
	case hasExt(path, TIFFExtensions):
		f, err = readTIFF(path)
	default:
		err = ErrUnsupportedFormat
	}

	if err != nil {
		return Frame{}, &LoadError{Filename: path, Err: err}
	}

	f.LoadFilename = path
	f.Unit = unit
	if f.Unit == "" {
		f.Unit = f.Header.GetString("BUNIT")
	}
	if f.Unit == "" {
		f.Unit = DefaultUnit
	}
	return f, nil
}

func (FileCodec) Write(f Frame, path string, overwrite bool) error {
	if !IsFITS(path) {
		return fmt.Errorf("write %s: %w, only FITS output is supported", path, ErrUnsupportedFormat)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	w, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("write %s: file exists and overwrite is off", path)
		}
		return fmt.Errorf("open+w '%s': %v", path, err)
	}

	if err := writeFITS(w, f); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %v", path, err)
	}
	return w.Close()
}
