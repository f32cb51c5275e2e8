package core

import (
	"errors"
	"fmt"
)

const (
	CodeConfiguration      = "E_CONFIGURATION"
	CodeTimestampParse     = "E_TIMESTAMP_PARSE"
	CodeMalformedWatermark = "E_MALFORMED_WATERMARK"
	CodeUpstreamHTTP       = "E_UPSTREAM_HTTP"
	CodeUpstreamProtocol   = "E_UPSTREAM_PROTOCOL"
	CodeStorage            = "E_STORAGE"
)

// Error wraps a collector failure with its taxonomy code.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with code. A nil err still yields an error carrying the code.
func Wrap(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// Errorf builds a non-retryable coded error from a format string.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// ConfigurationError reports missing or invalid configuration.
func ConfigurationError(format string, args ...any) *Error {
	return Errorf(CodeConfiguration, format, args...)
}

// TimestampParseError reports a bound that is not in the literal timestamp format.
func TimestampParseError(value string, err error) *Error {
	return Wrap(CodeTimestampParse, false, fmt.Errorf("parse timestamp %q: %w", value, err))
}

// MalformedWatermarkError reports a stored object name that cannot be
// parsed, so the next start boundary is unknown.
func MalformedWatermarkError(name string) *Error {
	return Errorf(CodeMalformedWatermark, "object name %q does not match the expected pattern", name)
}

// CodeOf returns the taxonomy code of the outermost coded error in err's
// chain, or "" if there is none.
func CodeOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code string) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Err
	}
	return false
}

// IsRetryable reports whether the outermost coded error in err's chain is
// marked retryable.
func IsRetryable(err error) bool {
	var coded *Error
	return errors.As(err, &coded) && coded.Retryable
}
