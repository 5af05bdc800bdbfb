package byterange

import "fmt"

// MalformedRangeError reports a ByteRange whose offsets do not delimit a
// decodable hex string in the file.
type MalformedRangeError struct {
	Range  ByteRange
	Reason string
	Err    error
}

func (e *MalformedRangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed byte range %s: %s: %v", e.Range, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed byte range %s: %s", e.Range, e.Reason)
}

func (e *MalformedRangeError) Unwrap() error {
	return e.Err
}

// NewMalformedRangeError creates a new MalformedRangeError.
func NewMalformedRangeError(r ByteRange, reason string) *MalformedRangeError {
	return &MalformedRangeError{Range: r, Reason: reason}
}
