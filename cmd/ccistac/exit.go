package main

import "fmt"

// Exit codes.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitConfigError indicates the environment or a reference file is
	// invalid. Nothing was read or written.
	ExitConfigError = 2

	// ExitPartialFailure indicates the run completed but some files,
	// items or nodes failed and were reported.
	ExitPartialFailure = 3
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func configError(err error) error {
	return &ExitError{Code: ExitConfigError, Err: err}
}

func partialFailure(format string, args ...any) error {
	return &ExitError{Code: ExitPartialFailure, Err: fmt.Errorf(format, args...)}
}
