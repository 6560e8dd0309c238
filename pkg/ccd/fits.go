package ccd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/abworrall/ccdcal/pkg/emath"
)

// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html

// Keys that describe the data layout. The codec owns these; they are
// dropped when reading and regenerated when writing.
var structuralKeys = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "EXTEND": true, "END": true,
	"BZERO": true, "BSCALE": true, "PCOUNT": true, "GCOUNT": true, "XTENSION": true,
}

var (
	naxisKeyRegexp    = regexp.MustCompile(`^NAXIS\d+$`)
	standardKeyRegexp = regexp.MustCompile(`^[A-Z0-9_-]{1,8}$`)
)

const (
	fitsTextWidth   = 72 // usable chars in a HISTORY/COMMENT card
	fitsStringWidth = 68 // usable chars in a quoted string value
)

func isStructural(key string) bool { return structuralKeys[key] || naxisKeyRegexp.MatchString(key) }

func readFITS(filename string) (Frame, error) {
	r, err := os.Open(filename)
	if err != nil {
		return Frame{}, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer r.Close()

	ff, err := fitsio.Open(r)
	if err != nil {
		return Frame{}, fmt.Errorf("fits parsing '%s': %v", filename, err)
	}
	defer ff.Close()

	img, ok := ff.HDU(0).(fitsio.Image)
	if !ok {
		return Frame{}, fmt.Errorf("primary HDU of '%s' is not an image", filename)
	}

	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 2 {
		return Frame{}, fmt.Errorf("'%s' has %d axes, need a 2-D image", filename, len(axes))
	}
	for _, n := range axes[2:] {
		if n != 1 {
			return Frame{}, fmt.Errorf("'%s' is a %v cube, only 2-D images are handled", filename, axes)
		}
	}

	f := Frame{Header: NewHeader()}
	bzero, bscale := 0.0, 1.0
	for i := 0; i < len(hdr.Keys()); i++ {
		card := hdr.Card(i)
		if v, ok := toFloat(card.Value); ok {
			switch card.Name {
			case "BZERO":
				bzero = v
			case "BSCALE":
				bscale = v
			}
		}
		if c, keep := cardFromFITS(card); keep {
			f.Header.Cards = append(f.Header.Cards, c)
		}
	}

	values, err := decodePixels(img.Raw(), hdr.Bitpix(), axes[0]*axes[1], bzero, bscale)
	if err != nil {
		return Frame{}, fmt.Errorf("'%s' pixels: %v", filename, err)
	}

	if err := f.setPixels(axes[0], axes[1], values); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f *Frame) setPixels(w, h int, values []float64) error {
	g, err := emath.NewFloatGridFromValues(w, h, values)
	if err != nil {
		return err
	}
	f.FloatGrid = g
	return nil
}

func cardFromFITS(card *fitsio.Card) (Card, bool) {
	name := strings.TrimSpace(strings.TrimPrefix(card.Name, "HIERARCH "))
	if name == "" || isStructural(name) {
		return Card{}, false
	}

	if isRepeatable(name) {
		text := card.Comment
		if s, ok := card.Value.(string); ok && text == "" {
			text = s
		}
		return Card{Key: name, Value: strings.TrimRight(text, " ")}, true
	}

	v := card.Value
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	return Card{Key: name, Value: v, Comment: card.Comment}, true
}

// decodePixels turns big-endian FITS data into physical values.
func decodePixels(raw []byte, bitpix int, n int, bzero, bscale float64) ([]float64, error) {
	size := bitpix / 8
	if size < 0 {
		size = -size
	}
	if size == 0 || len(raw) < n*size {
		return nil, fmt.Errorf("have %d bytes, need %d for %d pixels at BITPIX %d", len(raw), n*size, n, bitpix)
	}

	values := make([]float64, n)
	be := binary.BigEndian
	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		switch bitpix {
		case 8:
			values[i] = float64(b[0])
		case 16:
			values[i] = float64(int16(be.Uint16(b)))
		case 32:
			values[i] = float64(int32(be.Uint32(b)))
		case 64:
			values[i] = float64(int64(be.Uint64(b)))
		case -32:
			values[i] = float64(math.Float32frombits(be.Uint32(b)))
		case -64:
			values[i] = math.Float64frombits(be.Uint64(b))
		default:
			return nil, fmt.Errorf("unhandled BITPIX %d", bitpix)
		}
	}

	if bzero != 0 || bscale != 1 {
		for i := range values {
			values[i] = bzero + bscale*values[i]
		}
	}

	return values, nil
}

// writeFITS stores the frame as a single float64 image HDU, so the
// pixels come back bit-for-bit identical.
func writeFITS(w io.Writer, f Frame) error {
	ff, err := fitsio.Create(w)
	if err != nil {
		return err
	}

	img := fitsio.NewImage(-64, []int{f.Dx(), f.Dy()})
	defer img.Close()

	cards := []fitsio.Card{}
	if !f.Header.Has("BUNIT") && f.Unit != "" {
		cards = append(cards, fitsio.Card{Name: "BUNIT", Value: f.Unit, Comment: "physical unit of pixels"})
	}
	for _, c := range f.Header.Cards {
		cards = append(cards, cardsToFITS(c)...)
	}

	if err := img.Header().Append(cards...); err != nil {
		return fmt.Errorf("header: %v", err)
	}
	if err := img.Write(f.Values()); err != nil {
		return fmt.Errorf("pixels: %v", err)
	}
	if err := ff.Write(img); err != nil {
		return err
	}
	return ff.Close()
}

func cardsToFITS(c Card) []fitsio.Card {
	if isStructural(c.Key) {
		return nil
	}

	name := c.Key
	if !standardKeyRegexp.MatchString(name) {
		name = "HIERARCH " + name
	}

	if isRepeatable(c.Key) {
		// Long text is split over several cards of the same kind
		text := asciiOnly(fmt.Sprintf("%v", c.Value))
		out := []fitsio.Card{}
		for len(text) > fitsTextWidth {
			out = append(out, fitsio.Card{Name: name, Comment: text[:fitsTextWidth]})
			text = text[fitsTextWidth:]
		}
		return append(out, fitsio.Card{Name: name, Comment: text})
	}

	return []fitsio.Card{{Name: name, Value: fitsValue(c.Value), Comment: asciiOnly(c.Comment)}}
}

func fitsValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bool, int, float64:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float32:
		return float64(val)
	case string:
		s := asciiOnly(val)
		if len(s) > fitsStringWidth {
			s = s[:fitsStringWidth]
		}
		return s
	case nil:
		return ""
	}
	return fitsValue(fmt.Sprintf("%v", v))
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	}
	return 0, false
}
