package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
)

// NormalizedColumn holds current density rescaled to the reference scan rate.
const NormalizedColumn = "j_normalized A/cm2"

// WriteScan writes scan as CSV using the canonical column names. The
// normalized column is present only when the scan was rescaled.
func WriteScan(w io.Writer, scan background.BackgroundScan) error {
	cw := csv.NewWriter(w)

	header := []string{potentialColumns[0], currentDensityColumns[0], scanRateColumns[0], segmentColumns[0], sourceColumns[0]}
	if scan.Normalized() {
		header = append(header, NormalizedColumn)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csvio.write: %w", err)
	}

	rec := make([]string, len(header))
	for i, s := range scan.Samples {
		fill(rec, s)
		if scan.Normalized() {
			rec[5] = formatFloat(scan.NormalizedCurrentDensity[i])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csvio.write: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvio.write: %w", err)
	}
	return nil
}

// WriteBatch writes a plain batch with the canonical column names.
func WriteBatch(w io.Writer, batch model.Batch) error {
	return WriteScan(w, background.BackgroundScan{Samples: batch})
}

func fill(rec []string, s model.Sample) {
	rec[0] = formatFloat(s.Potential)
	rec[1] = formatFloat(s.CurrentDensity)
	rec[2] = formatFloat(s.ScanRate)
	rec[3] = strconv.Itoa(s.Segment)
	rec[4] = s.Source
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
