package cms

import (
	"fmt"

	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// VerifyDetached checks that the detached signature in blob was computed
// over content by the certificate named in its SignerInfo. Certificate
// chains are not evaluated here.
func VerifyDetached(blob, content []byte) error {
	p7, err := pkcs7.Parse(trimPadding(blob))
	if err != nil {
		return &DecodeError{Layer: "cms", Expected: "PKCS#7 SignedData", Found: "unparsable envelope", Err: err}
	}
	p7.Content = content
	if err := p7.Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrContentMismatch, err)
	}
	return nil
}

// trimPadding cuts blob after the outer ContentInfo element so trailing
// Contents padding does not reach the PKCS#7 parser. BER input that
// cryptobyte cannot read is returned unchanged.
func trimPadding(blob []byte) []byte {
	input := cryptobyte.String(blob)
	var element cryptobyte.String
	if !input.ReadASN1Element(&element, asn1.SEQUENCE) {
		return blob
	}
	return element
}
