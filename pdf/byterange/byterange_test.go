package byterange

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePDF lays out a signature dictionary whose Contents hex string starts
// at the offset given as the second ByteRange value.
func samplePDF(hexDigits string) ([]byte, ByteRange) {
	prefix := "%PDF-1.7\n4 0 obj\n<< /Type /Sig /ByteRange [0 0000000000 0000000000 0000000000] /Contents "
	suffix := " >>\nendobj\n%%EOF\n"
	start := len(prefix)
	end := start + len(hexDigits) + 2
	total := end + len(suffix)

	header := strings.Replace(prefix, "[0 0000000000 0000000000 0000000000]",
		padRange(start, end, total-end), 1)
	data := []byte(header + "<" + hexDigits + ">" + suffix)
	r := ByteRange{Start: int64(start), End: int64(end), Span: [4]int64{0, int64(start), int64(end), int64(total - end)}}
	return data, r
}

func padRange(a, b, c int) string {
	s := "[0 " + strconv.Itoa(a) + " " + strconv.Itoa(b) + " " + strconv.Itoa(c) + "]"
	return s + strings.Repeat(" ", len("[0 0000000000 0000000000 0000000000]")-len(s))
}

func requireMalformed(t *testing.T, err error) *MalformedRangeError {
	t.Helper()
	var mre *MalformedRangeError
	require.True(t, errors.As(err, &mre), "error = %v, want MalformedRangeError", err)
	return mre
}

func TestScan(t *testing.T) {
	t.Run("NoMarkers", func(t *testing.T) {
		assert.Empty(t, Scan([]byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")))
	})

	t.Run("SingleRange", func(t *testing.T) {
		data, want := samplePDF("3003020100")
		ranges := Scan(data)
		require.Len(t, ranges, 1)
		assert.Equal(t, want, ranges[0])
	})

	t.Run("DocumentOrder", func(t *testing.T) {
		ranges := Scan([]byte("/ByteRange [0 10 20 30] ... /ByteRange[0 100 200 300]"))
		require.Len(t, ranges, 2)
		assert.Equal(t, int64(10), ranges[0].Start)
		assert.Equal(t, int64(20), ranges[0].End)
		assert.Equal(t, int64(100), ranges[1].Start)
		assert.Equal(t, int64(200), ranges[1].End)
	})

	t.Run("WhitespaceVariants", func(t *testing.T) {
		ranges := Scan([]byte("/ByteRange\n[\n0\n5\r\n9 \t 4 ]"))
		require.Len(t, ranges, 1)
		assert.Equal(t, [4]int64{0, 5, 9, 4}, ranges[0].Span)
	})

	t.Run("PartialMarkerSkipped", func(t *testing.T) {
		ranges := Scan([]byte("/ByteRange [0 10 20] /ByteRange [ ] /ByteRange [0 1 2 3]"))
		require.Len(t, ranges, 1)
		assert.Equal(t, int64(1), ranges[0].Start)
	})

	t.Run("OverflowSkipped", func(t *testing.T) {
		assert.Empty(t, Scan([]byte("/ByteRange [0 99999999999999999999 2 3]")))
	})

	t.Run("MaxInt64Kept", func(t *testing.T) {
		ranges := Scan([]byte("/ByteRange [0 9223372036854775807 20 0]"))
		require.Len(t, ranges, 1)
		assert.Equal(t, int64(math.MaxInt64), ranges[0].Start)
	})
}

func TestCountSignatures(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		markers int
		ranges  int
	}{
		{"Empty", "", 0, 0},
		{"NoSignature", "%PDF-1.7\n%%EOF\n", 0, 0},
		{"One", "/ByteRange [0 1 2 3]", 1, 1},
		{"Two", "/ByteRange [0 1 2 3]\n/ByteRange [0 4 5 6]", 2, 2},
		{"Placeholder", "/ByteRange []            ", 1, 0},
		{"Mixed", "/ByteRange [0 1 2 3] /ByteRange [0 1]", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.markers, CountSignatures([]byte(tt.data), CountMarkers), "markers")
			assert.Equal(t, tt.ranges, CountSignatures([]byte(tt.data), CountRanges), "ranges")
		})
	}
}

func TestParseCountMode(t *testing.T) {
	tests := []struct {
		input   string
		want    CountMode
		wantErr bool
	}{
		{"", CountMarkers, false},
		{"markers", CountMarkers, false},
		{"ranges", CountRanges, false},
		{"all", CountMarkers, true},
	}
	for _, tt := range tests {
		got, err := ParseCountMode(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "ParseCountMode(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "ParseCountMode(%q)", tt.input)
		assert.Equal(t, tt.want, got, "ParseCountMode(%q)", tt.input)
	}
	assert.Equal(t, "ranges", CountRanges.String())
}

func TestExtractBlob(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		data, r := samplePDF("3003020100")
		blob, err := ExtractBlob(data, r)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x30, 0x03, 0x02, 0x01, 0x00}, blob)
	})

	t.Run("PaddingKept", func(t *testing.T) {
		data, r := samplePDF("30030201000000")
		blob, err := ExtractBlob(data, r)
		require.NoError(t, err)
		assert.Len(t, blob, 7)
	})

	t.Run("WhitespaceIgnored", func(t *testing.T) {
		data, r := samplePDF("30 03\n02 01 00")
		blob, err := ExtractBlob(data, r)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x30, 0x03, 0x02, 0x01, 0x00}, blob)
	})

	t.Run("OddLength", func(t *testing.T) {
		data, r := samplePDF("300302010")
		_, err := ExtractBlob(data, r)
		mre := requireMalformed(t, err)
		assert.Contains(t, mre.Reason, "odd")
	})

	t.Run("InvalidHex", func(t *testing.T) {
		data, r := samplePDF("30zz")
		_, err := ExtractBlob(data, r)
		mre := requireMalformed(t, err)
		assert.NotNil(t, mre.Unwrap(), "expected wrapped hex error")
	})

	t.Run("Bounds", func(t *testing.T) {
		data, r := samplePDF("3003020100")
		size := int64(len(data))
		tests := []struct {
			name string
			r    ByteRange
		}{
			{"EndBeforeStart", ByteRange{Start: r.End, End: r.Start}},
			{"EndEqualsStart", ByteRange{Start: r.Start, End: r.Start}},
			{"Adjacent", ByteRange{Start: r.Start, End: r.Start + 1}},
			{"NegativeStart", ByteRange{Start: -5, End: r.End}},
			{"PastEOF", ByteRange{Start: r.Start, End: size + 10}},
			{"NotDelimited", ByteRange{Start: r.Start + 1, End: r.End}},
			{"StartAtEOF", ByteRange{Start: size, End: size}},
			{"MaxStart", ByteRange{Start: math.MaxInt64, End: 20}},
			{"MaxStartAndEnd", ByteRange{Start: math.MaxInt64, End: math.MaxInt64}},
			{"MinEnd", ByteRange{Start: r.Start, End: math.MinInt64}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var err error
				require.NotPanics(t, func() { _, err = ExtractBlob(data, tt.r) })
				mre := requireMalformed(t, err)
				assert.Equal(t, tt.r, mre.Range)
			})
		}
	})

	t.Run("ScannedMaxInt64", func(t *testing.T) {
		data := []byte("%PDF-1.7\n4 0 obj\n<< /ByteRange [0 9223372036854775807 20 0] /Contents <00> >>\n")
		ranges := Scan(data)
		require.Len(t, ranges, 1)
		var err error
		require.NotPanics(t, func() { _, err = ExtractBlob(data, ranges[0]) })
		requireMalformed(t, err)
	})
}

func TestSignedContent(t *testing.T) {
	data, r := samplePDF("3003020100")

	content, err := SignedContent(data, r)
	require.NoError(t, err)
	want := append(append([]byte{}, data[:r.Start]...), data[r.End:]...)
	assert.Equal(t, want, content)
	assert.False(t, bytes.Contains(content, []byte("<3003020100>")),
		"signed content must exclude the Contents hex string")

	t.Run("PastEOF", func(t *testing.T) {
		bad := r
		bad.Span[3] += 100
		_, err := SignedContent(data, bad)
		requireMalformed(t, err)
	})

	t.Run("Overlap", func(t *testing.T) {
		bad := r
		bad.Span[1] = bad.Span[2] + 1
		_, err := SignedContent(data, bad)
		requireMalformed(t, err)
	})

	t.Run("Overflow", func(t *testing.T) {
		tests := []struct {
			name string
			span [4]int64
		}{
			{"FirstOffset", [4]int64{math.MaxInt64, 1, 20, 0}},
			{"FirstLength", [4]int64{1, math.MaxInt64, 20, 0}},
			{"SecondOffset", [4]int64{0, 1, math.MaxInt64, 1}},
			{"SecondLength", [4]int64{0, 1, 20, math.MaxInt64}},
			{"BothMax", [4]int64{math.MaxInt64, math.MaxInt64, math.MaxInt64, math.MaxInt64}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				bad := ByteRange{Start: tt.span[1], End: tt.span[2], Span: tt.span}
				var err error
				require.NotPanics(t, func() { _, err = SignedContent(data, bad) })
				requireMalformed(t, err)
			})
		}
	})
}

func TestMalformedRangeError(t *testing.T) {
	r := ByteRange{Start: 1, End: 2, Span: [4]int64{0, 1, 2, 3}}
	err := NewMalformedRangeError(r, "bad")
	assert.Equal(t, "malformed byte range [0 1 2 3]: bad", err.Error())
}
