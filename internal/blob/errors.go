package blob

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
	CodeWriteFailed         = "E_WRITE_FAILED"
	CodeReadFailed          = "E_READ_FAILED"
)

// ErrObjectNotFound is matched by errors.Is for any Error with CodeObjectNotFound.
var ErrObjectNotFound = errors.New("object not found")

// Error wraps storage failures with a stable code.
type Error struct {
	Code string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Key, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports CodeObjectNotFound errors as ErrObjectNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrObjectNotFound && e.Code == CodeObjectNotFound
}

func wrapError(code, key string, err error) *Error {
	return &Error{Code: code, Key: key, Err: err}
}
