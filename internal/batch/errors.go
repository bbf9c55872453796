package batch

import "errors"

// ErrHalted is returned when a failure stops a run started with Halt.
var ErrHalted = errors.New("halted on failure")
