package n2scan

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
)

const directoryPermission = 0750

// inventoryHeader names the columns of a CSV inventory.
var inventoryHeader = []string{"scanrate", "Segment #", "PAR_file", "rows", "distinct", "candidate", "full_length"}

// writeResult writes a selection as CSV rows or as the API's JSON shape.
// Empty results have no rows, so nothing is written for CSV.
func writeResult(w io.Writer, format, runID string, res background.Result) error {
	if format == FormatJSON {
		return writeIndented(w, types.NewScanResponse(runID, res))
	}
	if res.Empty() {
		return nil
	}
	return csvio.WriteScan(w, res.Scan)
}

// writeInventory writes groups as a CSV table or as {"groups": [...]}.
func writeInventory(w io.Writer, format string, groups []types.Group) error {
	if format == FormatJSON {
		return writeIndented(w, map[string][]types.Group{"groups": groups})
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(inventoryHeader); err != nil {
		return fmt.Errorf("n2scan.inventory: %w", err)
	}
	for _, g := range groups {
		rec := []string{
			strconv.FormatFloat(g.ScanRate, 'g', -1, 64),
			strconv.Itoa(g.Segment),
			g.Source,
			strconv.Itoa(g.Rows),
			strconv.Itoa(g.Distinct),
			strconv.FormatBool(g.Candidate),
			strconv.FormatBool(g.FullLength),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("n2scan.inventory: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("n2scan.inventory: %w", err)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("n2scan.json: %w", err)
	}
	return nil
}

// openOutput returns stdout for "" and "-", otherwise creates path and its
// parent directory.
func openOutput(ctx context.Context, path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return nil, nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.String("path", path), logger.Error(err))
		}
	}, nil
}

// outputPath names the per-file output of input: NAME_background.FORMAT in
// dir, or next to input when dir is empty.
func outputPath(dir, input, format string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "_background." + format
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}
