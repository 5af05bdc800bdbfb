package trust

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/georgepadayatti/pdfsigcheck/sign/certinfo"
)

// Selector picks a certificate record by the value of one of its fields.
// Path is a dot-separated field path such as "subject.common_name".
type Selector struct {
	Path  string
	Value any
}

// ParseSelector parses "path=value" into a Selector with a string value.
func ParseSelector(s string) (*Selector, error) {
	path, value, ok := strings.Cut(s, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return nil, fmt.Errorf("invalid selector %q: expected path=value", s)
	}
	return &Selector{Path: path, Value: value}, nil
}

func (s *Selector) String() string {
	return fmt.Sprintf("%s=%v", s.Path, s.Value)
}

// Matches reports whether the field of rec at the selector path equals the
// selector value.
func (s *Selector) Matches(rec *certinfo.CertificateRecord) bool {
	if rec == nil {
		return false
	}
	got, ok := rec.Lookup(s.Path)
	if !ok {
		return false
	}
	return valueEqual(got, s.Value)
}

// Select returns the last record when sel is nil, otherwise the first record
// sel matches. It returns nil for empty input or when nothing matches.
func Select(records []*certinfo.CertificateRecord, sel *Selector) *certinfo.CertificateRecord {
	if len(records) == 0 {
		return nil
	}
	if sel == nil {
		return records[len(records)-1]
	}
	for _, rec := range records {
		if sel.Matches(rec) {
			return rec
		}
	}
	return nil
}

func valueEqual(got, want any) bool {
	switch g := got.(type) {
	case string:
		switch w := want.(type) {
		case string:
			return g == w
		case *string:
			return w != nil && g == *w
		case fmt.Stringer:
			return g == w.String()
		}
	case time.Time:
		switch w := want.(type) {
		case time.Time:
			return g.Equal(w)
		case *time.Time:
			return w != nil && g.Equal(*w)
		case string:
			t, err := time.Parse(time.RFC3339, w)
			return err == nil && g.Equal(t)
		}
	case []byte:
		switch w := want.(type) {
		case []byte:
			return bytes.Equal(g, w)
		case certinfo.Bytes:
			return bytes.Equal(g, w)
		case string:
			b, err := base64.StdEncoding.DecodeString(w)
			return err == nil && bytes.Equal(g, b)
		}
	}
	return false
}
