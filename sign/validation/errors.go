package validation

import (
	"errors"
	"fmt"
)

// ErrFileTooLarge is returned when an input file exceeds Settings.MaxFileSize.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// IOError occurs when an input file cannot be opened or read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

// SignatureError ties a failure to the zero-based position of the signature
// in document order.
type SignatureError struct {
	Index int
	Err   error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature %d: %v", e.Index, e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// NewSignatureError creates a new SignatureError.
func NewSignatureError(index int, err error) *SignatureError {
	return &SignatureError{Index: index, Err: err}
}
