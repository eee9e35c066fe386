package query

import (
	"context"
	"errors"
)

// ErrConfiguration is matched by every ConfigError. Configuration errors are fatal for the query
// and should be shown to the user rather than retried.
var ErrConfiguration = errors.New("widget configuration error")

// ErrSuperseded is returned by Runner for runs that a newer run replaced. It is not a failure,
// and callers should drop the result silently.
var ErrSuperseded = errors.New("query superseded by a newer query")

type ConfigError struct {
	Message string
	Cause   error
}

func configError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}

func (err *ConfigError) Error() string {
	if err.Cause == nil {
		return err.Message
	}
	return err.Message + ": " + err.Cause.Error()
}

func (err *ConfigError) Unwrap() error {
	return err.Cause
}

func (err *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// IsCancellation reports whether an error only means the query was superseded or cancelled.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled)
}
