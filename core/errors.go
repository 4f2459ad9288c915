package core

import (
	"errors"
	"fmt"
)

// ConfigurationError is raised before any model call is made. It recurs on
// every attempt, so it is never retried.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// RemoteExecutionError wraps failures of the hosted model: transport,
// authentication, rate limiting and malformed or empty replies.
type RemoteExecutionError struct {
	Agent string
	Err   error
}

func (e *RemoteExecutionError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("remote execution failed: %v", e.Err)
	}
	return fmt.Sprintf("remote execution failed for %s: %v", e.Agent, e.Err)
}

func (e *RemoteExecutionError) Unwrap() error {
	return e.Err
}

var ErrMissingCredential = errors.New("model credential is not set")

func NewConfigurationError(reason string, err error) error {
	return &ConfigurationError{Reason: reason, Err: err}
}

func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func IsRemoteExecutionError(err error) bool {
	var remoteErr *RemoteExecutionError
	return errors.As(err, &remoteErr)
}

// ErrorTrace flattens the wrap chain of err, outermost first.
func ErrorTrace(err error) []string {
	var trace []string
	for err != nil {
		trace = append(trace, fmt.Sprintf("%T: %s", err, err.Error()))
		err = errors.Unwrap(err)
	}
	return trace
}
