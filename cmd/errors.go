package cmd

import "errors"

// Process exit codes. Scripts depend on these staying stable.
const (
	exitOK          = 0
	exitGeneric     = 1
	exitConfig      = 2
	exitMissingPath = 3
	exitPortInUse   = 5
)

// ExitError pairs a command error with the process exit code it maps to.
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

func exitErr(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps a command error to its process exit code. Errors that
// carry no explicit code exit 1.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return exitGeneric
}
