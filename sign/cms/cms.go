// Package cms decodes the CMS (Cryptographic Message Syntax) SignedData
// envelopes embedded in PDF signatures and recovers the signer certificate.
//
// The envelope is navigated tag by tag so that structural problems are
// reported with the element that was expected and the one that was found:
//
//	ContentInfo ::= SEQUENCE {
//	    contentType ContentType,
//	    content     [0] EXPLICIT ANY DEFINED BY contentType }
//
//	SignedData ::= SEQUENCE {
//	    version          CMSVersion,
//	    digestAlgorithms DigestAlgorithmIdentifiers,
//	    encapContentInfo EncapsulatedContentInfo,
//	    certificates     [0] IMPLICIT CertificateSet OPTIONAL,
//	    crls             [1] IMPLICIT RevocationInfoChoices OPTIONAL,
//	    signerInfos      SignerInfos }
package cms

import (
	"encoding/asn1"
	"errors"
	"math/big"
)

// OIDs for CMS content types
var (
	OIDData       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
)

// Common errors
var (
	ErrMissingCertificate = errors.New("missing certificate")
	ErrContentMismatch    = errors.New("signature does not cover the signed content")
)

// IssuerAndSerialNumber identifies a certificate by issuer and serial.
type IssuerAndSerialNumber struct {
	// Issuer is the DER encoding of the issuer Name.
	Issuer       []byte
	SerialNumber *big.Int
}

// SignerIdentifier identifies the certificate of one SignerInfo. Exactly
// one of IssuerAndSerialNumber and SubjectKeyIdentifier is set.
type SignerIdentifier struct {
	IssuerAndSerialNumber *IssuerAndSerialNumber
	SubjectKeyIdentifier  []byte
}

// SignedData is the part of a decoded SignedData this package exposes.
type SignedData struct {
	Version int

	// Certificates holds the DER encoding of every certificate in the
	// certificate set, in encoded order.
	Certificates [][]byte

	// Signers holds the sid of every SignerInfo, in encoded order.
	Signers []SignerIdentifier
}
