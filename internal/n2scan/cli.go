package n2scan

import (
	"fmt"
	"io"

	"github.com/okian/n2bg/pkg/logger"
)

// SetupLogging initializes the global logger on stderr at level.
func SetupLogging(level string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for n2scan.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `n2scan
======

Selects the N2 background sweep from cyclic voltammetry CSV exports.

Usage:
  n2scan [options] file.csv [file.csv ...]

All files are read as one batch unless -each is given. Rows without a
PAR_file column are tagged with their file name.

Options:
  -max-scanrate float
        Ceiling for the batch minimum scan rate in V/s (default 0.011)
  -length int
        Points in one clean background cycle (default 2000)
  -reference float
        Scan rate current density is normalized to in V/s (default 0.01)
  -format string
        Output format, csv or json (default "csv")
  -out string
        Output file (default: stdout)
  -inventory
        Print the (scan rate, segment, source) groups instead of selecting
  -each
        Select per file on a worker pool, writing NAME_background.FORMAT
  -out-dir string
        Directory for -each outputs (default: next to each input)
  -workers int
        Pool size for -each (default: CPU cores)
  -url string
        Send the batch to a running n2bg server instead of selecting locally
  -timeout duration
        HTTP request timeout for -url (default 30s)
  -log-level string
        debug, info, warn or error (default "info")
  -help
        Show this help message

Exit status is 2 when no background scan was found.

Examples:
  n2scan -out bg.csv run1.csv run2.csv
  n2scan -inventory -format json run1.csv
  n2scan -each -workers 4 -out-dir backgrounds data/*.csv
  n2scan -url http://localhost:9080 -format json run1.csv
`)
}
