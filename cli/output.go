package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/pdfsigcheck/sign/certinfo"
)

// recordWriter prints certificate records in one output format.
type recordWriter interface {
	Record(w io.Writer, rec *certinfo.CertificateRecord) error
	Records(w io.Writer, recs []*certinfo.CertificateRecord) error
}

func newWriter(format string) (recordWriter, error) {
	switch format {
	case "", "text":
		return textWriter{}, nil
	case "json":
		return jsonWriter{}, nil
	case "yaml":
		return yamlWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

type jsonWriter struct{}

func (jsonWriter) Record(w io.Writer, rec *certinfo.CertificateRecord) error {
	return writeJSON(w, rec)
}

func (jsonWriter) Records(w io.Writer, recs []*certinfo.CertificateRecord) error {
	if recs == nil {
		recs = []*certinfo.CertificateRecord{}
	}
	return writeJSON(w, recs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

type yamlWriter struct{}

func (yamlWriter) Record(w io.Writer, rec *certinfo.CertificateRecord) error {
	return writeYAML(w, rec)
}

func (yamlWriter) Records(w io.Writer, recs []*certinfo.CertificateRecord) error {
	if recs == nil {
		recs = []*certinfo.CertificateRecord{}
	}
	return writeYAML(w, recs)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

type textWriter struct{}

func (textWriter) Record(w io.Writer, rec *certinfo.CertificateRecord) error {
	fmt.Fprintln(w, "Certificate:")
	writeRecordText(w, rec)
	return nil
}

func (textWriter) Records(w io.Writer, recs []*certinfo.CertificateRecord) error {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No signatures found")
		return nil
	}
	for i, rec := range recs {
		if i > 0 {
			fmt.Fprintln(w, "")
		}
		fmt.Fprintf(w, "Signature %d:\n", i+1)
		writeRecordText(w, rec)
	}
	return nil
}

func writeRecordText(w io.Writer, rec *certinfo.CertificateRecord) {
	writeNameText(w, "Subject", rec.Subject)
	writeNameText(w, "Issuer", rec.Issuer)
	fmt.Fprintf(w, "  Valid From:      %s\n", formatTime(rec.Validity.From))
	fmt.Fprintf(w, "  Valid To:        %s\n", formatTime(rec.Validity.To))
	if rec.PublicKey != nil {
		fmt.Fprintf(w, "  Public Key:      %d bytes\n", len(rec.PublicKey))
	}
	if rec.Signature != nil {
		fmt.Fprintf(w, "  Signature:       %d bytes\n", len(*rec.Signature)/2)
	}
}

func writeNameText(w io.Writer, label string, n certinfo.Name) {
	fmt.Fprintf(w, "  %s:\n", label)
	fmt.Fprintf(w, "    Common Name:   %s\n", formatString(n.CommonName))
	fmt.Fprintf(w, "    Owner:         %s\n", formatString(n.Owner))
	fmt.Fprintf(w, "    Serial Number: %s\n", formatString(n.SerialNumber))
	fmt.Fprintf(w, "    Country:       %s\n", formatString(n.Country))
}

func formatString(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
