// Package integrity stamps calibrated frames with a digest of their
// pixels, and checks stored digests against recomputed ones.
package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/abworrall/ccdcal/pkg/ccd"
	"github.com/abworrall/ccdcal/pkg/emath"
)

const (
	DefaultSoftware = "ccdcal"
	DefaultVersion  = "1.0"

	// CheckLen is how many hex chars of the digest go into DATACHECK
	CheckLen = 32

	TimeFormat = "2006-01-02T15:04:05"
)

// Identity names the software that produced a frame.
type Identity struct {
	Software string
	Version  string
}

func DefaultIdentity() Identity { return Identity{Software: DefaultSoftware, Version: DefaultVersion} }

// Hash is the hex SHA-256 of the pixel values, taken row-major as
// little-endian IEEE-754 float64s.
func Hash(g *emath.FloatGrid) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, v := range g.Values() {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// StampIdentity writes the creation time and software identity.
func StampIdentity(h *ccd.Header, id Identity, now time.Time) {
	if id.Software == "" {
		id.Software = DefaultSoftware
	}
	if id.Version == "" {
		id.Version = DefaultVersion
	}
	h.Set("CREATED", now.UTC().Format(TimeFormat), "UTC creation time")
	h.Set("SOFTWARE", id.Software, "processing software")
	h.Set("PROCVERS", id.Version, "processing software version")
}

// Stamper records a digest and summary statistics in a frame header.
type Stamper struct {
	Identity
	Now func() time.Time // defaults to time.Now
}

func NewStamper(id Identity) *Stamper { return &Stamper{Identity: id, Now: time.Now} }

// Stamp writes DATACHECK, the full hash as HISTORY, the pixel stats and
// the identity cards. It returns the full hash. Stamping the same pixels
// twice writes the same values, bar CREATED.
func (s *Stamper) Stamp(h *ccd.Header, g *emath.FloatGrid) string {
	sum := Hash(g)
	min, max, mean := g.MinMaxMean()

	h.Set("DATACHECK", sum[:CheckLen], "SHA-256 of pixel data (truncated)")
	h.AddHistory("Data SHA-256: %s", sum)
	h.Set("PIXSUM", fmt.Sprintf("%.2f", g.Sum()), "sum of pixel values")
	h.Set("DATAMIN", fmt.Sprintf("%.2f", min), "minimum pixel value")
	h.Set("DATAMAX", fmt.Sprintf("%.2f", max), "maximum pixel value")
	h.Set("DATAMEAN", fmt.Sprintf("%.2f", mean), "mean pixel value")

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	StampIdentity(h, s.Identity, now())

	return sum
}

type Validity int

const (
	Unknown Validity = iota // no stored digest
	Valid
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

type Result struct {
	Validity   Validity
	Stored     string
	Recomputed string
	Filename   string
}

// Err is an *ccd.IntegrityMismatchError for an invalid result, else nil.
func (r Result) Err() error {
	if r.Validity != Invalid {
		return nil
	}
	return &ccd.IntegrityMismatchError{Filename: r.Filename, Stored: r.Stored, Recomputed: r.Recomputed}
}

// Verify recomputes the digest and compares it to DATACHECK.
func Verify(h ccd.Header, g *emath.FloatGrid) Result {
	stored := h.GetString("DATACHECK")
	if stored == "" {
		return Result{Validity: Unknown}
	}

	sum := Hash(g)
	r := Result{Stored: stored, Recomputed: sum[:CheckLen], Validity: Invalid}
	if r.Stored == r.Recomputed {
		r.Validity = Valid
	}
	return r
}
