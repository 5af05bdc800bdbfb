// Package byterange locates signature ByteRange markers in raw PDF bytes and
// extracts the hex-encoded CMS blobs they delimit.
//
// The scanner is not PDF-object aware: it treats the file as an opaque byte
// stream and matches the textual /ByteRange [a b c d] array of each signature
// dictionary. In a conforming signature dictionary, a is 0, b is the offset of
// the '<' that opens the /Contents hex string, c is the offset just past the
// closing '>' and d is the length of the trailing signed region.
package byterange

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
)

// CountMode selects how CountSignatures counts signatures.
type CountMode int

const (
	// CountMarkers counts every "ByteRange [" token, whether or not the
	// array that follows is well formed.
	CountMarkers CountMode = iota
	// CountRanges counts only markers followed by four integers.
	CountRanges
)

// String returns the configuration name of the mode.
func (m CountMode) String() string {
	switch m {
	case CountMarkers:
		return "markers"
	case CountRanges:
		return "ranges"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseCountMode parses a configuration name into a CountMode.
func ParseCountMode(s string) (CountMode, error) {
	switch s {
	case "", "markers":
		return CountMarkers, nil
	case "ranges":
		return CountRanges, nil
	default:
		return CountMarkers, fmt.Errorf("unknown count mode %q", s)
	}
}

var (
	markerPattern = regexp.MustCompile(`ByteRange\s*\[`)
	rangePattern  = regexp.MustCompile(`ByteRange\s*\[\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s*\]`)
)

// ByteRange marks the hex-digest region of one signature inside a PDF file.
type ByteRange struct {
	// Start is the offset of the '<' delimiter of the Contents hex string
	// (second integer of the array).
	Start int64

	// End is the offset just past the '>' delimiter (third integer).
	End int64

	// Span holds all four integers as written in the file.
	Span [4]int64
}

// String renders the range the way it appears in the PDF.
func (r ByteRange) String() string {
	return fmt.Sprintf("[%d %d %d %d]", r.Span[0], r.Span[1], r.Span[2], r.Span[3])
}

// Scan returns every complete ByteRange array found in data, in document order.
// Markers that are not followed by four integers are skipped.
func Scan(data []byte) []ByteRange {
	matches := rangePattern.FindAllSubmatch(data, -1)
	ranges := make([]ByteRange, 0, len(matches))
	for _, m := range matches {
		var span [4]int64
		ok := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseInt(string(m[i+1]), 10, 64)
			if err != nil {
				// Digit runs too long for int64.
				ok = false
				break
			}
			span[i] = v
		}
		if !ok {
			continue
		}
		ranges = append(ranges, ByteRange{Start: span[1], End: span[2], Span: span})
	}
	return ranges
}

// CountSignatures counts the signatures in data according to mode.
// CountMarkers can report more signatures than Scan returns when a file
// carries truncated or placeholder ByteRange arrays.
func CountSignatures(data []byte, mode CountMode) int {
	if mode == CountRanges {
		return len(Scan(data))
	}
	return len(markerPattern.FindAllIndex(data, -1))
}

// ExtractBlob reads the Contents hex string delimited by r and returns its
// decoded bytes. The delimiters at Start and End-1 are excluded; ASCII
// whitespace inside the hex string is ignored.
func ExtractBlob(data []byte, r ByteRange) ([]byte, error) {
	size := int64(len(data))
	switch {
	case r.Start < 0:
		return nil, NewMalformedRangeError(r, "start offset is negative")
	case r.Start >= size:
		return nil, NewMalformedRangeError(r, fmt.Sprintf("start offset exceeds file length %d", size))
	case r.End <= r.Start+1:
		return nil, NewMalformedRangeError(r, "end offset does not follow start offset")
	case r.End > size:
		return nil, NewMalformedRangeError(r, fmt.Sprintf("end offset exceeds file length %d", size))
	}

	if data[r.Start] != '<' || data[r.End-1] != '>' {
		return nil, NewMalformedRangeError(r, "range is not delimited by a hex string")
	}

	digits := stripWhitespace(data[r.Start+1 : r.End-1])
	if len(digits)%2 != 0 {
		return nil, NewMalformedRangeError(r, fmt.Sprintf("odd hex string length %d", len(digits)))
	}

	blob := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(blob, digits); err != nil {
		return nil, &MalformedRangeError{Range: r, Reason: "invalid hex string", Err: err}
	}
	return blob, nil
}

// SignedContent returns the bytes covered by the signature: the region
// before the Contents hex string followed by the region after it.
func SignedContent(data []byte, r ByteRange) ([]byte, error) {
	size := int64(len(data))
	for i, v := range r.Span {
		if v < 0 {
			return nil, NewMalformedRangeError(r, fmt.Sprintf("negative value at position %d", i))
		}
	}
	// Offsets and lengths are bounded one at a time so the sums cannot overflow.
	if r.Span[0] > size || r.Span[1] > size-r.Span[0] ||
		r.Span[2] > size || r.Span[3] > size-r.Span[2] {
		return nil, NewMalformedRangeError(r, fmt.Sprintf("signed region exceeds file length %d", size))
	}
	firstEnd := r.Span[0] + r.Span[1]
	secondEnd := r.Span[2] + r.Span[3]
	if firstEnd > r.Span[2] {
		return nil, NewMalformedRangeError(r, "signed regions overlap")
	}

	content := make([]byte, 0, r.Span[1]+r.Span[3])
	content = append(content, data[r.Span[0]:firstEnd]...)
	content = append(content, data[r.Span[2]:secondEnd]...)
	return content, nil
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n', '\f', 0:
			continue
		}
		out = append(out, c)
	}
	return out
}
