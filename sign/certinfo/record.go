// Package certinfo converts decoded X.509 certificates into normalized,
// serializable records.
//
// Every field of a CertificateRecord except the certificate handle is best
// effort: a field that cannot be extracted is left absent instead of failing
// the whole record.
package certinfo

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"time"
)

// Name holds the distinguished name attributes a record exposes.
type Name struct {
	CommonName   *string `json:"common_name,omitempty" yaml:"common_name,omitempty"`
	Owner        *string `json:"owner,omitempty" yaml:"owner,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty" yaml:"serial_number,omitempty"`
	Country      *string `json:"country,omitempty" yaml:"country,omitempty"`
}

// Validity holds the certificate validity period in UTC.
type Validity struct {
	From *time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To   *time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

// Bytes is a byte string that serializes as standard base64 in both JSON
// and YAML.
type Bytes []byte

// MarshalYAML implements yaml.Marshaler.
func (b Bytes) MarshalYAML() (any, error) {
	if b == nil {
		return nil, nil
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// CertificateRecord is the normalized view of an X.509 certificate.
type CertificateRecord struct {
	Subject  Name     `json:"subject" yaml:"subject"`
	Issuer   Name     `json:"issuer" yaml:"issuer"`
	Validity Validity `json:"validity" yaml:"validity"`

	// PublicKey is the PKIX (SubjectPublicKeyInfo) DER encoding of the
	// subject public key.
	PublicKey Bytes `json:"public_key,omitempty" yaml:"public_key,omitempty"`

	// Signature is the lowercase hex encoding of the certificate signature.
	Signature *string `json:"signature,omitempty" yaml:"signature,omitempty"`

	cert *x509.Certificate
}

// Certificate returns the decoded certificate the record was built from.
func (r *CertificateRecord) Certificate() *x509.Certificate {
	return r.cert
}

// Fields returns the record as a nested mapping keyed by the serialized
// field names. Absent fields are omitted.
func (r *CertificateRecord) Fields() map[string]any {
	m := map[string]any{
		"subject":  r.Subject.fields(),
		"issuer":   r.Issuer.fields(),
		"validity": r.Validity.fields(),
	}
	if r.PublicKey != nil {
		m["public_key"] = []byte(r.PublicKey)
	}
	if r.Signature != nil {
		m["signature"] = *r.Signature
	}
	return m
}

// Lookup resolves a dot-separated path such as "subject.common_name"
// against Fields. The boolean result is false when any segment is absent.
func (r *CertificateRecord) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	return lookup(r.Fields(), strings.Split(path, "."))
}

func lookup(node any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return node, true
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	child, ok := m[segments[0]]
	if !ok {
		return nil, false
	}
	return lookup(child, segments[1:])
}

func (n Name) fields() map[string]any {
	m := make(map[string]any, 4)
	putString(m, "common_name", n.CommonName)
	putString(m, "owner", n.Owner)
	putString(m, "serial_number", n.SerialNumber)
	putString(m, "country", n.Country)
	return m
}

func (v Validity) fields() map[string]any {
	m := make(map[string]any, 2)
	if v.From != nil {
		m["from"] = *v.From
	}
	if v.To != nil {
		m["to"] = *v.To
	}
	return m
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

// Equal reports whether a and b carry the same field values. The
// certificate handles are not compared.
func Equal(a, b *CertificateRecord) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Subject.equal(b.Subject) &&
		a.Issuer.equal(b.Issuer) &&
		equalTime(a.Validity.From, b.Validity.From) &&
		equalTime(a.Validity.To, b.Validity.To) &&
		bytes.Equal(a.PublicKey, b.PublicKey) &&
		equalString(a.Signature, b.Signature)
}

func (n Name) equal(o Name) bool {
	return equalString(n.CommonName, o.CommonName) &&
		equalString(n.Owner, o.Owner) &&
		equalString(n.SerialNumber, o.SerialNumber) &&
		equalString(n.Country, o.Country)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
