// Package errdefs defines the error taxonomy shared by all transflow
// components.
//
// Errors fall into five categories:
//
//   - NetworkError: transport-level failures, surfaced only after the
//     retrying HTTP client has exhausted its attempts.
//   - ValidationError: bad input (malformed URL, missing credential).
//     Never retried; fails fast.
//   - ConfigurationError: invalid configuration values.
//   - APIError: a remote service answered, but with a business-level
//     failure or an empty payload.
//   - TranslationError: any failure inside the translate-and-rebuild
//     sequence, including provider failures during delimiter fallback.
//
// Each category carries an exit code used by the CLI: validation and
// configuration problems exit 2, everything else exits 1.
package errdefs

import (
	"errors"
	"fmt"
)

// NetworkError is returned after all retries for a request are exhausted.
type NetworkError struct {
	// URL is the request target.
	URL string
	// Attempts is how many times the request was tried.
	Attempts int
	// Err is the last underlying failure.
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports invalid caller input. Not retryable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports invalid configuration.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// Configurationf builds a ConfigurationError with a formatted message.
func Configurationf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// APIError reports a business-level failure from a remote service.
type APIError struct {
	Msg string
	Err error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *APIError) Unwrap() error { return e.Err }

// APIf builds an APIError with a formatted message.
func APIf(format string, args ...any) error {
	return &APIError{Msg: fmt.Sprintf(format, args...)}
}

// TranslationError wraps any failure during the translate operation.
type TranslationError struct {
	Msg string
	Err error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Translationf wraps err with a formatted message.
func Translationf(err error, format string, args ...any) error {
	return &TranslationError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// ExitCode maps an error to the process exit code the CLI should use.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ve *ValidationError
	var ce *ConfigurationError
	if errors.As(err, &ve) || errors.As(err, &ce) {
		return 2
	}
	return 1
}
