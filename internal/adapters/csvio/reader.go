// Package csvio reads CV sample tables from CSV and writes selected
// background scans back out.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/okian/n2bg/internal/domain/model"
)

// Sentinel kinds for this package.
var (
	ErrNoHeader      = errors.New("missing header row")
	ErrMissingColumn = errors.New("missing column")
	ErrParse         = errors.New("parse failed")
)

// Column names accepted for each field, compared case-insensitively after
// trimming. The first name is the one written back out.
var (
	potentialColumns      = []string{"E_vs_RHE", "E(V)", "potential"}
	currentDensityColumns = []string{"j A/cm2", "current_density", "j"}
	scanRateColumns       = []string{"scanrate", "scan_rate"}
	segmentColumns        = []string{"Segment #", "segment"}
	sourceColumns         = []string{"PAR_file", "source"}
)

const ctxCheckEvery = 4096

// Option applies a configuration option to a read.
type Option func(*readConfig)

type readConfig struct {
	comma  rune
	source string
}

// WithComma sets the field delimiter. Defaults to ','.
func WithComma(r rune) Option {
	return func(c *readConfig) {
		if r != 0 {
			c.comma = r
		}
	}
}

// WithSource sets the source identifier used when the table has no source
// column.
func WithSource(source string) Option {
	return func(c *readConfig) {
		c.source = source
	}
}

type columns struct {
	potential, current, rate, segment, source int
}

// Read parses a CSV table into a batch. Rows keep file order.
func Read(ctx context.Context, r io.Reader, opts ...Option) (model.Batch, error) {
	const op = "csvio.read"

	cfg := readConfig{comma: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	cr := csv.NewReader(r)
	cr.Comma = cfg.comma
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", op, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrParse, err)
	}
	cols, err := locate(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var batch model.Batch
	for row := 2; ; row++ {
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrParse, err)
		}
		s, err := parseRow(rec, cols, cfg.source)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: line %d: %w", op, ErrParse, row, err)
		}
		batch = append(batch, s)
	}
	return batch, nil
}

// ReadFile parses the CSV file at path. Without a source column, samples are
// attributed to path.
func ReadFile(ctx context.Context, path string, opts ...Option) (model.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio.read_file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(ctx, f, append([]Option{WithSource(path)}, opts...)...)
}

func locate(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[strings.ToLower(n)]; ok {
				return i
			}
		}
		return -1
	}

	c := columns{
		potential: find(potentialColumns),
		current:   find(currentDensityColumns),
		rate:      find(scanRateColumns),
		segment:   find(segmentColumns),
		source:    find(sourceColumns),
	}
	var missing []string
	if c.potential < 0 {
		missing = append(missing, potentialColumns[0])
	}
	if c.current < 0 {
		missing = append(missing, currentDensityColumns[0])
	}
	if c.rate < 0 {
		missing = append(missing, scanRateColumns[0])
	}
	if c.segment < 0 {
		missing = append(missing, segmentColumns[0])
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return c, nil
}

func parseRow(rec []string, c columns, source string) (model.Sample, error) {
	var s model.Sample
	var err error
	if s.Potential, err = parseFloat(rec, c.potential); err != nil {
		return s, err
	}
	if s.CurrentDensity, err = parseFloat(rec, c.current); err != nil {
		return s, err
	}
	if s.ScanRate, err = parseFloat(rec, c.rate); err != nil {
		return s, err
	}
	if s.Segment, err = parseSegment(rec, c.segment); err != nil {
		return s, err
	}
	s.Source = source
	if c.source >= 0 && c.source < len(rec) {
		s.Source = strings.TrimSpace(rec[c.source])
	}
	return s, nil
}

func field(rec []string, i int) (string, error) {
	if i >= len(rec) {
		return "", fmt.Errorf("row has %d fields, need column %d", len(rec), i+1)
	}
	return strings.TrimSpace(rec[i]), nil
}

func parseFloat(rec []string, i int) (float64, error) {
	raw, err := field(rec, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}

// parseSegment accepts integers and integral floats such as "3.0".
func parseSegment(rec []string, i int) (int, error) {
	raw, err := field(rec, i)
	if err != nil {
		return 0, err
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("invalid segment %q", raw)
	}
	return int(v), nil
}
