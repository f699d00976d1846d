package job

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrJobAlreadyRunning = errors.New("job already has a running execution")
	ErrUnknownTable      = errors.New("unknown table")
)
