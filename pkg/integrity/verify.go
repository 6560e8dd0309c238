package integrity

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abworrall/ccdcal/pkg/ccd"
)

// FileResult is the outcome of checking one file on disk.
type FileResult struct {
	Result
	Path       string
	Dimensions string
	CalStatus  string
	Created    string
	PixelSum   float64
	SizeKB     float64
	LoadErr    error // load failure; Result is Unknown when set
}

func (fr FileResult) String() string {
	if fr.LoadErr != nil {
		return fmt.Sprintf("%s: error: %v", filepath.Base(fr.Path), fr.LoadErr)
	}
	return fmt.Sprintf("%s: %s [%s, sum %.2f, CALSTAT=%s, created %s, %.1f KB]",
		filepath.Base(fr.Path), fr.Validity, fr.Dimensions, fr.PixelSum, fr.CalStatus, fr.Created, fr.SizeKB)
}

// VerifyFile loads a file and checks its digest. It never fails; load
// errors are captured in the result.
func VerifyFile(r ccd.Reader, path string) FileResult {
	fr := FileResult{Path: path, CalStatus: "Unknown", Created: "Unknown"}
	fr.Filename = filepath.Base(path)

	if info, err := os.Stat(path); err == nil {
		fr.SizeKB = float64(info.Size()) / 1024
	}

	f, err := r.Read(path, "")
	if err != nil {
		fr.LoadErr = err
		return fr
	}

	fr.Dimensions = f.Shape()
	if s := f.Header.GetString("CALSTAT"); s != "" {
		fr.CalStatus = s
	}
	if s := f.Header.GetString("CREATED"); s != "" {
		fr.Created = s
	}
	if v, err := strconv.ParseFloat(f.Header.GetString("PIXSUM"), 64); err == nil {
		fr.PixelSum = v
	}

	res := Verify(f.Header, &f.FloatGrid)
	res.Filename = fr.Filename
	fr.Result = res
	return fr
}

// Summary collects the results of a batch verification.
type Summary struct {
	Files   []FileResult
	Valid   int
	Invalid int
	Unknown int // no digest stored
	Errored int
}

// VerifyFiles checks every path, carrying on past failures.
func VerifyFiles(r ccd.Reader, paths []string) Summary {
	s := Summary{Files: []FileResult{}}
	for _, path := range paths {
		fr := VerifyFile(r, path)
		s.Files = append(s.Files, fr)

		switch {
		case fr.LoadErr != nil:
			s.Errored++
		case fr.Validity == Valid:
			s.Valid++
		case fr.Validity == Invalid:
			s.Invalid++
		default:
			s.Unknown++
		}
	}
	return s
}

// InvalidFiles lists the paths whose data no longer matches the digest.
func (s Summary) InvalidFiles() []string {
	out := []string{}
	for _, fr := range s.Files {
		if fr.LoadErr == nil && fr.Validity == Invalid {
			out = append(out, fr.Path)
		}
	}
	return out
}

func (s Summary) String() string {
	return fmt.Sprintf("%d files: %d valid, %d invalid, %d unverifiable, %d errors",
		len(s.Files), s.Valid, s.Invalid, s.Unknown, s.Errored)
}
