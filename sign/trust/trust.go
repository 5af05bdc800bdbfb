// Package trust decides whether a signer certificate was issued by a given
// issuer and whether it is a given subject certificate.
//
// Only the certificate signature is checked. Validity periods, key usage,
// basic constraints and revocation are not evaluated.
package trust

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/georgepadayatti/pdfsigcheck/sign/certinfo"
)

var (
	errNilCertificate = errors.New("nil certificate")
	errTrailingData   = errors.New("trailing data after certificate")
)

type certificateEnvelope struct {
	TBSCertificate     asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

// SignatureAlgorithm returns the outer signatureAlgorithm of cert, including
// parameters crypto/x509 does not expose.
func SignatureAlgorithm(cert *x509.Certificate) (pkix.AlgorithmIdentifier, error) {
	var env certificateEnvelope
	rest, err := asn1.Unmarshal(cert.Raw, &env)
	if err != nil {
		return pkix.AlgorithmIdentifier{}, fmt.Errorf("failed to parse certificate envelope: %w", err)
	}
	if len(rest) > 0 {
		return pkix.AlgorithmIdentifier{}, errTrailingData
	}
	return env.SignatureAlgorithm, nil
}

// VerifyIssuedBy checks that the signature of subject verifies under the
// public key of issuer.
func VerifyIssuedBy(subject, issuer *x509.Certificate) error {
	if subject == nil || issuer == nil {
		return errNilCertificate
	}
	algo, err := SignatureAlgorithm(subject)
	if err != nil {
		return err
	}
	return VerifySignature(subject.Signature, subject.RawTBSCertificate, issuer.PublicKey, algo)
}

// CertIsValid reports whether subject was signed by issuer.
func CertIsValid(subject, issuer *x509.Certificate) bool {
	return VerifyIssuedBy(subject, issuer) == nil
}

// SignIsValid reports whether the record chosen by sel was signed by issuer.
func SignIsValid(records []*certinfo.CertificateRecord, issuer *x509.Certificate, sel *Selector) bool {
	rec := Select(records, sel)
	if rec == nil {
		return false
	}
	return CertIsValid(rec.Certificate(), issuer)
}

// SignMatchSubject reports whether the record chosen by sel is byte for byte
// the subject certificate.
func SignMatchSubject(records []*certinfo.CertificateRecord, subject *x509.Certificate, sel *Selector) bool {
	rec := Select(records, sel)
	if rec == nil || rec.Certificate() == nil || subject == nil {
		return false
	}
	return bytes.Equal(rec.Certificate().Raw, subject.Raw)
}
