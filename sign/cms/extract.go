package cms

import (
	"bytes"
	encasn1 "encoding/asn1"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	tagExplicitContent = asn1.Tag(0).ContextSpecific().Constructed()
	tagCertificates    = asn1.Tag(0).ContextSpecific().Constructed()
	tagCRLs            = asn1.Tag(1).ContextSpecific().Constructed()
	tagSubjectKeyID    = asn1.Tag(0).ContextSpecific()
)

// ParseSignedData decodes a DER encoded ContentInfo wrapping SignedData.
// Bytes following the ContentInfo, such as the zero padding of a PDF
// Contents string, are ignored. The certificate set is required and must
// hold at least one certificate.
func ParseSignedData(blob []byte) (*SignedData, error) {
	input := cryptobyte.String(blob)

	contentInfo, err := readElement(&input, asn1.SEQUENCE, "ContentInfo SEQUENCE")
	if err != nil {
		return nil, err
	}

	var contentType encasn1.ObjectIdentifier
	if !contentInfo.PeekASN1Tag(asn1.OBJECT_IDENTIFIER) {
		return nil, NewDecodeError("contentType OBJECT IDENTIFIER", describeNext(contentInfo))
	}
	if !contentInfo.ReadASN1ObjectIdentifier(&contentType) {
		return nil, NewDecodeError("contentType OBJECT IDENTIFIER", "malformed object identifier")
	}
	if !contentType.Equal(OIDSignedData) {
		return nil, NewDecodeError("signedData content type "+OIDSignedData.String(), contentType.String())
	}

	explicit, err := readElement(&contentInfo, tagExplicitContent, "[0] EXPLICIT content")
	if err != nil {
		return nil, err
	}
	body, err := readElement(&explicit, asn1.SEQUENCE, "SignedData SEQUENCE")
	if err != nil {
		return nil, err
	}

	sd := &SignedData{}
	if !body.PeekASN1Tag(asn1.INTEGER) {
		return nil, NewDecodeError("version INTEGER", describeNext(body))
	}
	if !body.ReadASN1Integer(&sd.Version) {
		return nil, NewDecodeError("version INTEGER", "malformed integer")
	}
	if _, err := readElement(&body, asn1.SET, "digestAlgorithms SET"); err != nil {
		return nil, err
	}
	if _, err := readElement(&body, asn1.SEQUENCE, "encapContentInfo SEQUENCE"); err != nil {
		return nil, err
	}

	certSet, err := readElement(&body, tagCertificates, "[0] IMPLICIT certificates SET")
	if err != nil {
		return nil, err
	}
	for !certSet.Empty() {
		var (
			element cryptobyte.String
			tag     asn1.Tag
		)
		if !certSet.ReadAnyASN1Element(&element, &tag) {
			return nil, NewDecodeError("CertificateChoices element", "truncated element")
		}
		// Attribute certificates and other choices carry context tags.
		if tag != asn1.SEQUENCE {
			continue
		}
		sd.Certificates = append(sd.Certificates, bytes.Clone(element))
	}
	if len(sd.Certificates) == 0 {
		return nil, NewDecodeError("certificate in certificates SET", "empty set")
	}

	if !body.SkipOptionalASN1(tagCRLs) {
		return nil, NewDecodeError("[1] IMPLICIT crls", "truncated element")
	}

	signerInfos, err := readElement(&body, asn1.SET, "signerInfos SET")
	if err != nil {
		return nil, err
	}
	for !signerInfos.Empty() {
		signerInfo, err := readElement(&signerInfos, asn1.SEQUENCE, "SignerInfo SEQUENCE")
		if err != nil {
			return nil, err
		}
		sid, err := parseSignerIdentifier(signerInfo)
		if err != nil {
			return nil, fmt.Errorf("signer info %d: %w", len(sd.Signers), err)
		}
		sd.Signers = append(sd.Signers, sid)
	}

	return sd, nil
}

// parseSignerIdentifier reads the version and sid fields of a SignerInfo.
func parseSignerIdentifier(signerInfo cryptobyte.String) (SignerIdentifier, error) {
	var version int
	if !signerInfo.ReadASN1Integer(&version) {
		return SignerIdentifier{}, NewDecodeError("SignerInfo version INTEGER", describeNext(signerInfo))
	}

	switch {
	case signerInfo.PeekASN1Tag(asn1.SEQUENCE):
		ias, err := readElement(&signerInfo, asn1.SEQUENCE, "IssuerAndSerialNumber SEQUENCE")
		if err != nil {
			return SignerIdentifier{}, err
		}
		var issuer cryptobyte.String
		if !ias.ReadASN1Element(&issuer, asn1.SEQUENCE) {
			return SignerIdentifier{}, NewDecodeError("issuer Name SEQUENCE", describeNext(ias))
		}
		serial := new(big.Int)
		if !ias.ReadASN1Integer(serial) {
			return SignerIdentifier{}, NewDecodeError("serialNumber INTEGER", describeNext(ias))
		}
		return SignerIdentifier{IssuerAndSerialNumber: &IssuerAndSerialNumber{
			Issuer:       bytes.Clone(issuer),
			SerialNumber: serial,
		}}, nil

	case signerInfo.PeekASN1Tag(tagSubjectKeyID):
		var ski cryptobyte.String
		if !signerInfo.ReadASN1(&ski, tagSubjectKeyID) {
			return SignerIdentifier{}, NewDecodeError("[0] subjectKeyIdentifier", "truncated element")
		}
		return SignerIdentifier{SubjectKeyIdentifier: bytes.Clone(ski)}, nil

	default:
		return SignerIdentifier{}, NewDecodeError("SignerIdentifier", describeNext(signerInfo))
	}
}

// readElement reads the next element, which must carry tag, and returns its
// contents.
func readElement(s *cryptobyte.String, tag asn1.Tag, expected string) (cryptobyte.String, error) {
	if !s.PeekASN1Tag(tag) {
		return nil, NewDecodeError(expected, describeNext(*s))
	}
	var out cryptobyte.String
	if !s.ReadASN1(&out, tag) {
		return nil, NewDecodeError(expected, "truncated element")
	}
	return out, nil
}

// describeNext names the element at the head of s for error messages.
func describeNext(s cryptobyte.String) string {
	if len(s) == 0 {
		return "end of data"
	}
	b := s[0]
	switch asn1.Tag(b) {
	case asn1.SEQUENCE:
		return "SEQUENCE"
	case asn1.SET:
		return "SET"
	case asn1.INTEGER:
		return "INTEGER"
	case asn1.OBJECT_IDENTIFIER:
		return "OBJECT IDENTIFIER"
	case asn1.OCTET_STRING:
		return "OCTET STRING"
	case asn1.BIT_STRING:
		return "BIT STRING"
	case asn1.NULL:
		return "NULL"
	}
	if b&0xc0 == 0x80 {
		kind := "primitive"
		if b&0x20 != 0 {
			kind = "constructed"
		}
		return fmt.Sprintf("[%d] %s", b&0x1f, kind)
	}
	return fmt.Sprintf("tag 0x%02x", b)
}
