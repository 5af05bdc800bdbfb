package certinfo

import "fmt"

// CertificateDecodeError occurs when bytes that should hold an X.509
// certificate cannot be parsed into one.
type CertificateDecodeError struct {
	Err error
}

func (e *CertificateDecodeError) Error() string {
	return fmt.Sprintf("certificate decode error: %v", e.Err)
}

func (e *CertificateDecodeError) Unwrap() error {
	return e.Err
}

// NewCertificateDecodeError creates a new CertificateDecodeError.
func NewCertificateDecodeError(err error) *CertificateDecodeError {
	return &CertificateDecodeError{Err: err}
}
