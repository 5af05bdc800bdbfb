package certinfo

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Distinguished name attribute types read from subject and issuer names.
var (
	OIDCommonName   = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDSerialNumber = asn1.ObjectIdentifier{2, 5, 4, 5}
	OIDCountry      = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDOrganization = asn1.ObjectIdentifier{2, 5, 4, 10}
)

var (
	errAbsent         = errors.New("not present")
	errNilCertificate = errors.New("no certificate")
)

// Option configures Normalize.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives a debug entry for every field
// left absent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Decode parses a DER encoded X.509 certificate.
func Decode(der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, NewCertificateDecodeError(err)
	}
	return cert, nil
}

// FromDER decodes der and normalizes the resulting certificate.
func FromDER(der []byte, opts ...Option) (*CertificateRecord, error) {
	cert, err := Decode(der)
	if err != nil {
		return nil, err
	}
	return Normalize(cert, opts...)
}

// Normalize builds a record from cert. Fields that cannot be extracted are
// left nil; only a missing certificate is an error.
func Normalize(cert *x509.Certificate, opts ...Option) (*CertificateRecord, error) {
	if cert == nil {
		return nil, NewCertificateDecodeError(errNilCertificate)
	}
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	rec := &CertificateRecord{cert: cert}
	rec.Subject = normalizeName(log, "subject", cert.RawSubject)
	rec.Issuer = normalizeName(log, "issuer", cert.RawIssuer)

	rec.Validity.From = optional(log, "validity.from", func() (time.Time, error) {
		return validityBound(cert.NotBefore)
	})
	rec.Validity.To = optional(log, "validity.to", func() (time.Time, error) {
		return validityBound(cert.NotAfter)
	})

	if spki, err := x509.MarshalPKIXPublicKey(cert.PublicKey); err != nil {
		log.Debug("certificate field unavailable", "field", "public_key", "error", err)
	} else {
		rec.PublicKey = spki
	}

	rec.Signature = optional(log, "signature", func() (string, error) {
		if len(cert.Signature) == 0 {
			return "", errAbsent
		}
		return hex.EncodeToString(cert.Signature), nil
	})

	return rec, nil
}

func normalizeName(log *slog.Logger, prefix string, raw []byte) Name {
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(raw, &rdns)
	if err == nil && len(rest) > 0 {
		err = fmt.Errorf("%d trailing bytes after name", len(rest))
	}
	if err != nil {
		log.Debug("certificate name unreadable", "field", prefix, "error", err)
		return Name{}
	}

	attr := func(field string, oid asn1.ObjectIdentifier) *string {
		return optional(log, prefix+"."+field, func() (string, error) {
			return attribute(rdns, oid)
		})
	}
	return Name{
		CommonName:   attr("common_name", OIDCommonName),
		Owner:        attr("owner", OIDOrganization),
		SerialNumber: attr("serial_number", OIDSerialNumber),
		Country:      attr("country", OIDCountry),
	}
}

// attribute returns the first value of type oid, NFC normalized.
func attribute(rdns pkix.RDNSequence, oid asn1.ObjectIdentifier) (string, error) {
	for _, rdn := range rdns {
		for _, atv := range rdn {
			if !atv.Type.Equal(oid) {
				continue
			}
			s, ok := atv.Value.(string)
			if !ok {
				return "", fmt.Errorf("attribute %s has non-string value of type %T", oid, atv.Value)
			}
			return norm.NFC.String(s), nil
		}
	}
	return "", errAbsent
}

func validityBound(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, errAbsent
	}
	return t.UTC(), nil
}

func optional[T any](log *slog.Logger, field string, extract func() (T, error)) *T {
	v, err := extract()
	if err != nil {
		log.Debug("certificate field unavailable", "field", field, "error", err)
		return nil
	}
	return &v
}
