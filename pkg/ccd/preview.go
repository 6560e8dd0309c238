package ccd

import (
	"fmt"

	"github.com/abworrall/ccdcal/pkg/emath"
)

// WritePreview renders a stretched PNG of the frame, captioned with the
// title (or the filename, if the title is empty).
func WritePreview(f Frame, filename, title string, opts emath.RenderOptions) error {
	if f.Empty() {
		return fmt.Errorf("preview %s: %w", filename, ErrEmptyInput)
	}
	if title == "" {
		title = f.Filename()
	}
	return f.ToImg(title, filename, opts)
}
