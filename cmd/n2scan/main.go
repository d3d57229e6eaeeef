package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/n2scan"
)

// Default configuration constants.
const (
	defaultTimeout   = 30 * time.Second
	exitFailure      = 1
	exitNoBackground = 2
)

func main() {
	var (
		maxScanRate = flag.Float64("max-scanrate", background.DefaultMaxScanRate, "Ceiling for the batch minimum scan rate (V/s)")
		length      = flag.Int("length", background.DefaultExpectedLength, "Points in one clean background cycle")
		reference   = flag.Float64("reference", background.DefaultReferenceScanRate, "Scan rate current density is normalized to (V/s)")
		format      = flag.String("format", n2scan.FormatCSV, "Output format: csv or json")
		out         = flag.String("out", "", "Output file (default: stdout)")
		inventory   = flag.Bool("inventory", false, "Print scan rate, segment and source groups instead of selecting")
		each        = flag.Bool("each", false, "Select per file on a worker pool")
		outDir      = flag.String("out-dir", "", "Directory for -each outputs (default: next to each input)")
		workers     = flag.Int("workers", runtime.NumCPU(), "Pool size for -each")
		baseURL     = flag.String("url", "", "Base URL of a running n2bg server")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout for -url")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Usage = func() { n2scan.ShowHelp(os.Stderr) }
	flag.Parse()

	if *help {
		n2scan.ShowHelp(os.Stdout)
		return
	}

	if err := n2scan.SetupLogging(*logLevel); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &n2scan.Config{
		Files:             flag.Args(),
		MaxScanRate:       *maxScanRate,
		ExpectedLength:    *length,
		ReferenceScanRate: *reference,
		Out:               *out,
		OutDir:            *outDir,
		Format:            *format,
		Inventory:         *inventory,
		Each:              *each,
		Workers:           *workers,
		URL:               *baseURL,
		Timeout:           *timeout,
		LogLevel:          *logLevel,
	}

	err := n2scan.Run(ctx, config, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, n2scan.ErrNoBackground):
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(exitNoBackground)
	default:
		os.Stderr.WriteString("n2scan failed: " + err.Error() + "\n")
		stop()
		os.Exit(exitFailure)
	}
}
