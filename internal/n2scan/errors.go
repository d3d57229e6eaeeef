package n2scan

import "errors"

// Sentinel kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid n2scan config")
	ErrNoBackground  = errors.New("no background scan")
	ErrRemote        = errors.New("remote request failed")
	ErrQueueFull     = errors.New("job queue rejected file")
)
