package cms

import "fmt"

// DecodeError reports a structural mismatch while decoding a DER encoded
// CMS envelope or PEM certificate.
type DecodeError struct {
	// Layer names the encoding being decoded ("cms", "pem").
	Layer    string
	Expected string
	Found    string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s decode error: expected %s, found %s", e.Layer, e.Expected, e.Found)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new DecodeError for the CMS layer.
func NewDecodeError(expected, found string) *DecodeError {
	return &DecodeError{Layer: "cms", Expected: expected, Found: found}
}
