package cli

import (
	"context"
	"errors"

	"gigachat/pkg/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitAPI        = 2
	ExitNetwork    = 3
	ExitAuth       = 4
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// classify maps client errors to exit codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}

	switch {
	case errors.Is(err, core.ErrInvalidRequest), errors.Is(err, core.ErrBatchSerialization), errors.Is(err, core.ErrBuildURL):
		return exitWithCode(ExitValidation, err)
	case errors.Is(err, core.ErrAuthFailed), errors.Is(err, core.ErrAuthResponseMalformed):
		return exitWithCode(ExitAuth, err)
	case errors.Is(err, core.ErrTransport), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return exitWithCode(ExitNetwork, err)
	}
	var apiErr *core.Error
	if errors.As(err, &apiErr) {
		return exitWithCode(ExitAPI, err)
	}
	return exitWithCode(ExitValidation, err)
}

// ExitCode returns the process exit code for an error returned by Run.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(classify(err), &ee) {
		return ee.code
	}
	return ExitAPI
}
