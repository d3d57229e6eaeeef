package n2scan

import (
	"fmt"
	"time"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Config holds configuration for one n2scan run.
type Config struct {
	Files             []string      // CSV inputs, read as one batch unless Each is set
	MaxScanRate       float64       // ceiling for the batch minimum scan rate (V/s)
	ExpectedLength    int           // points in one clean background cycle
	ReferenceScanRate float64       // scan rate current density is rescaled to (V/s)
	Out               string        // output file, stdout when empty or "-"
	OutDir            string        // per-file output directory for Each
	Format            string        // csv or json
	Inventory         bool          // print groups instead of selecting
	Each              bool          // select per file on a worker pool
	Workers           int           // pool size for Each, CPU count when below one
	URL               string        // base URL of a running server; local when empty
	Timeout           time.Duration // HTTP request timeout for URL
	LogLevel          string
}

// Validate checks flag combinations.
func (c *Config) Validate() error {
	switch {
	case len(c.Files) == 0:
		return fmt.Errorf("%w: no input files", ErrInvalidConfig)
	case c.Format != FormatCSV && c.Format != FormatJSON:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	case !(c.MaxScanRate > 0):
		return fmt.Errorf("%w: max scan rate must be positive", ErrInvalidConfig)
	case !(c.ReferenceScanRate > 0):
		return fmt.Errorf("%w: reference scan rate must be positive", ErrInvalidConfig)
	case c.ExpectedLength <= 0:
		return fmt.Errorf("%w: length must be positive", ErrInvalidConfig)
	case c.Each && c.URL != "":
		return fmt.Errorf("%w: -each runs locally and cannot be combined with -url", ErrInvalidConfig)
	case c.Each && c.Inventory:
		return fmt.Errorf("%w: -each and -inventory are exclusive", ErrInvalidConfig)
	case c.Each && c.Out != "":
		return fmt.Errorf("%w: -each writes one file per input, use -out-dir", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Files     int
	Rows      int
	Selected  int
	Fallbacks int
	Empty     int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
