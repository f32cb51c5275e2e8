package objectstore

import (
	"errors"
	"fmt"
)

const (
	CodeEndpointUnreachable = "E_ENDPOINT_UNREACHABLE"
	CodeAuthInvalid         = "E_AUTH_INVALID"
	CodeBucketNotFound      = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound      = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied    = "E_PERMISSION_DENIED"
	CodeTimeout             = "E_TIMEOUT"
	CodeWriteFailed         = "E_WRITE_FAILED"
	CodeCopyFailed          = "E_COPY_FAILED"
	CodeDeleteFailed        = "E_DELETE_FAILED"
	CodeListFailed          = "E_LIST_FAILED"
)

// Error wraps object store failures with retryability hints.
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

// IsNotFound reports whether err is a missing bucket or object.
func IsNotFound(err error) bool {
	var storeErr *Error
	if !errors.As(err, &storeErr) {
		return false
	}
	return storeErr.Code == CodeObjectNotFound || storeErr.Code == CodeBucketNotFound
}

func wrapError(code string, retryable bool, err error) *Error {
	if err == nil {
		return &Error{Code: code, Retryable: retryable}
	}
	return &Error{Code: code, Retryable: retryable, Err: err}
}
