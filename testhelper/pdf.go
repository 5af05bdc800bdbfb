package testhelper

import (
	"bytes"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"

	"go.mozilla.org/pkcs7"
)

// byteRangePlaceholderLength matches the width reserved for the
// /ByteRange array before the real offsets are known.
const byteRangePlaceholderLength = 60

// DefaultContentsReserve is the number of bytes reserved for a CMS blob.
const DefaultContentsReserve = 8192

// SignFunc produces a DER CMS blob for the signed content of a PDF revision.
type SignFunc func(content []byte) ([]byte, error)

// CMSSigner returns a SignFunc creating detached PKCS#7 signatures with the
// signer's certificate followed by chain. Pass prefix certificates to place
// them in the certificate set before the signer.
func CMSSigner(signer CertTuple, prefix []*x509.Certificate, chain ...*x509.Certificate) SignFunc {
	return func(content []byte) ([]byte, error) {
		sd, err := pkcs7.NewSignedData(content)
		if err != nil {
			return nil, err
		}
		sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
		for _, c := range prefix {
			sd.AddCertificate(c)
		}
		if err := sd.AddSignerChain(signer.Cert, signer.PrivateKey, chain, pkcs7.SignerInfoConfig{}); err != nil {
			return nil, err
		}
		sd.Detach()
		return sd.Finish()
	}
}

// StaticBlob returns a SignFunc that ignores the content and embeds blob.
func StaticBlob(blob []byte) SignFunc {
	return func([]byte) ([]byte, error) {
		return blob, nil
	}
}

// PDFBuilder writes a minimal PDF to which signatures are appended as
// incremental revisions. Each signature covers everything written before
// it plus its own dictionary, except its /Contents hex string.
type PDFBuilder struct {
	buf     bytes.Buffer
	nextObj int
	Reserve int
}

// NewPDFBuilder starts a PDF with a catalog and an empty page.
func NewPDFBuilder() *PDFBuilder {
	b := &PDFBuilder{nextObj: 4, Reserve: DefaultContentsReserve}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	b.buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	b.buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")
	b.buf.WriteString("trailer\n<< /Root 1 0 R >>\n%%EOF\n")
	return b
}

// AddSignature appends a signature dictionary and fills its ByteRange and
// Contents using sign.
func (b *PDFBuilder) AddSignature(name string, sign SignFunc) error {
	objNum := b.nextObj
	b.nextObj++

	fmt.Fprintf(&b.buf, "%d 0 obj\n<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached /Name (%s) /ByteRange ", objNum, name)
	rangeOffset := b.buf.Len()
	b.buf.WriteString("[]" + strings.Repeat(" ", byteRangePlaceholderLength))
	b.buf.WriteString(" /Contents ")
	sigStart := b.buf.Len()
	b.buf.WriteString("<" + strings.Repeat("0", 2*b.Reserve) + ">")
	sigEnd := b.buf.Len()
	b.buf.WriteString(" >>\nendobj\n%%EOF\n")
	eof := b.buf.Len()

	data := b.buf.Bytes()
	rangeRepr := fmt.Sprintf("[%d %d %d %d]", 0, sigStart, sigEnd, eof-sigEnd)
	if len(rangeRepr) > byteRangePlaceholderLength+2 {
		return fmt.Errorf("byte range string too long: %d", len(rangeRepr))
	}
	copy(data[rangeOffset:], rangeRepr)

	content := make([]byte, 0, sigStart+eof-sigEnd)
	content = append(content, data[:sigStart]...)
	content = append(content, data[sigEnd:eof]...)

	blob, err := sign(content)
	if err != nil {
		return err
	}
	if len(blob) > b.Reserve {
		return fmt.Errorf("signature of %d bytes exceeds reserved %d bytes", len(blob), b.Reserve)
	}
	copy(data[sigStart+1:], strings.ToUpper(hex.EncodeToString(blob)))
	return nil
}

// Bytes returns the PDF written so far.
func (b *PDFBuilder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// BuildSignedPDF returns a PDF holding one signature per signer, in order.
func BuildSignedPDF(signers ...SignFunc) ([]byte, error) {
	b := NewPDFBuilder()
	for i, s := range signers {
		if err := b.AddSignature(fmt.Sprintf("Signature%d", i+1), s); err != nil {
			return nil, err
		}
	}
	return b.Bytes(), nil
}

// RawSignaturePDF returns a PDF with one signature dictionary whose
// /Contents is contents verbatim, delimiters included. The ByteRange brackets
// contents exactly.
func RawSignaturePDF(contents string) []byte {
	const layout = "%%PDF-1.7\n4 0 obj\n<< /Type /Sig /ByteRange [0 %010d %010d %010d] /Contents "
	const tail = " >>\nendobj\n%%EOF\n"

	start := len(fmt.Sprintf(layout, 0, 0, 0))
	end := start + len(contents)
	total := end + len(tail)
	return []byte(fmt.Sprintf(layout, start, end, total-end) + contents + tail)
}
