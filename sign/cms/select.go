package cms

import (
	"bytes"
	"crypto/x509"
	"fmt"
)

// CertificateSelection decides which certificate of the certificate set is
// treated as the signer's certificate.
type CertificateSelection int

const (
	// SelectLast picks the last certificate of the set. PDF signing tools
	// commonly append the signer certificate after its chain; this is a
	// convention, not a protocol guarantee.
	SelectLast CertificateSelection = iota
	// SelectFirst picks the first certificate of the set.
	SelectFirst
	// SelectSignerInfo picks the certificate named by the sid of the first
	// SignerInfo and falls back to SelectLast when none matches.
	SelectSignerInfo
)

// String returns the configuration name of the policy.
func (p CertificateSelection) String() string {
	switch p {
	case SelectLast:
		return "last"
	case SelectFirst:
		return "first"
	case SelectSignerInfo:
		return "signer-info"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParseCertificateSelection parses a configuration name into a policy.
func ParseCertificateSelection(s string) (CertificateSelection, error) {
	switch s {
	case "", "last":
		return SelectLast, nil
	case "first":
		return SelectFirst, nil
	case "signer-info", "signer_info":
		return SelectSignerInfo, nil
	default:
		return SelectLast, fmt.Errorf("unknown certificate selection %q", s)
	}
}

// SignerCertificate returns the DER encoding of the certificate chosen by
// policy.
func (sd *SignedData) SignerCertificate(policy CertificateSelection) ([]byte, error) {
	if len(sd.Certificates) == 0 {
		return nil, ErrMissingCertificate
	}
	switch policy {
	case SelectFirst:
		return sd.Certificates[0], nil
	case SelectSignerInfo:
		if der := sd.matchSigner(); der != nil {
			return der, nil
		}
	}
	return sd.Certificates[len(sd.Certificates)-1], nil
}

func (sd *SignedData) matchSigner() []byte {
	if len(sd.Signers) == 0 {
		return nil
	}
	sid := sd.Signers[0]
	for _, der := range sd.Certificates {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			continue
		}
		if sid.Matches(cert) {
			return der
		}
	}
	return nil
}

// Matches reports whether cert is the certificate identified by sid.
func (sid SignerIdentifier) Matches(cert *x509.Certificate) bool {
	if ias := sid.IssuerAndSerialNumber; ias != nil {
		return bytes.Equal(ias.Issuer, cert.RawIssuer) && ias.SerialNumber.Cmp(cert.SerialNumber) == 0
	}
	return len(sid.SubjectKeyIdentifier) > 0 && bytes.Equal(sid.SubjectKeyIdentifier, cert.SubjectKeyId)
}

// SignerCertificate decodes blob and returns the DER encoding of the
// certificate chosen by policy.
func SignerCertificate(blob []byte, policy CertificateSelection) ([]byte, error) {
	sd, err := ParseSignedData(blob)
	if err != nil {
		return nil, err
	}
	return sd.SignerCertificate(policy)
}

// ExtractCertificates returns the DER encodings of the certificates carried
// in the SignedData envelope, in set order.
func ExtractCertificates(blob []byte) ([][]byte, error) {
	sd, err := ParseSignedData(blob)
	if err != nil {
		return nil, err
	}
	return sd.Certificates, nil
}

// SignerIdentifiers returns the sid of every SignerInfo in blob.
func SignerIdentifiers(blob []byte) ([]SignerIdentifier, error) {
	sd, err := ParseSignedData(blob)
	if err != nil {
		return nil, err
	}
	return sd.Signers, nil
}
