package integrity

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ReportRow is one line of a verification report.
type ReportRow struct {
	Path       string  `parquet:"path"`
	Validity   string  `parquet:"validity"`
	Stored     string  `parquet:"stored_hash"`
	Recomputed string  `parquet:"recomputed_hash"`
	Dimensions string  `parquet:"dimensions"`
	CalStatus  string  `parquet:"cal_status"`
	Created    string  `parquet:"created"`
	PixelSum   float64 `parquet:"pixel_sum"`
	SizeKB     float64 `parquet:"size_kb"`
	Error      string  `parquet:"error"`
}

func (s Summary) Rows() []ReportRow {
	rows := make([]ReportRow, 0, len(s.Files))
	for _, fr := range s.Files {
		row := ReportRow{
			Path:       fr.Path,
			Validity:   fr.Validity.String(),
			Stored:     fr.Stored,
			Recomputed: fr.Recomputed,
			Dimensions: fr.Dimensions,
			CalStatus:  fr.CalStatus,
			Created:    fr.Created,
			PixelSum:   fr.PixelSum,
			SizeKB:     fr.SizeKB,
		}
		if fr.LoadErr != nil {
			row.Validity = "error"
			row.Error = fr.LoadErr.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteReport stores the per-file results as a parquet file, for
// archive audits.
func WriteReport(path string, s Summary) error {
	if err := parquet.WriteFile(path, s.Rows()); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func ReadReport(path string) ([]ReportRow, error) {
	rows, err := parquet.ReadFile[ReportRow](path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	return rows, nil
}
