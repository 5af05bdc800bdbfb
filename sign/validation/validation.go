package validation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/georgepadayatti/pdfsigcheck/keys"
	"github.com/georgepadayatti/pdfsigcheck/pdf/byterange"
	"github.com/georgepadayatti/pdfsigcheck/sign/certinfo"
	"github.com/georgepadayatti/pdfsigcheck/sign/cms"
	"github.com/georgepadayatti/pdfsigcheck/sign/trust"
)

// Validator answers signature questions about files on disk. It holds only
// immutable settings and may be shared between goroutines.
type Validator struct {
	settings Settings
	logger   *slog.Logger
}

// NewValidator creates a Validator bound to settings. Nil settings means
// DefaultSettings.
func NewValidator(settings *Settings) *Validator {
	if settings == nil {
		settings = DefaultSettings()
	}
	s := settings.withDefaults()
	return &Validator{settings: s, logger: s.Logger}
}

// Settings returns a copy of the settings the validator uses.
func (v *Validator) Settings() Settings {
	return v.settings
}

// document is one PDF read into memory with its signatures decoded.
type document struct {
	data    []byte
	ranges  []byterange.ByteRange
	records []*certinfo.CertificateRecord
	// indexes maps records back to their position in ranges.
	indexes []int
}

func (v *Validator) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewIOError(path, err)
	}
	defer f.Close()

	// The extra byte detects oversize files; limit+1 overflows at MaxInt64.
	limit := v.settings.MaxFileSize
	var r io.Reader = f
	if limit < math.MaxInt64 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewIOError(path, err)
	}
	if int64(len(data)) > limit {
		return nil, NewIOError(path, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, limit))
	}
	return data, nil
}

// SignCount returns the number of signatures in the PDF at path according
// to the configured CountMode.
func (v *Validator) SignCount(path string) (int, error) {
	data, err := v.readFile(path)
	if err != nil {
		return 0, err
	}
	n := byterange.CountSignatures(data, v.settings.CountMode)
	v.logger.Debug("counted signatures", "path", path, "mode", v.settings.CountMode.String(), "count", n)
	return n, nil
}

func (v *Validator) loadDocument(path string) (*document, error) {
	data, err := v.readFile(path)
	if err != nil {
		return nil, err
	}

	doc := &document{data: data, ranges: byterange.Scan(data)}
	doc.records = make([]*certinfo.CertificateRecord, 0, len(doc.ranges))

	var errs []error
	for i, r := range doc.ranges {
		rec, err := v.signerRecord(data, r)
		if err != nil {
			v.logger.Debug("signature unreadable", "path", path, "index", i, "range", r.String(), "error", err)
			errs = append(errs, NewSignatureError(i, err))
			continue
		}
		v.logger.Debug("signature decoded", "path", path, "index", i, "range", r.String())
		doc.records = append(doc.records, rec)
		doc.indexes = append(doc.indexes, i)
	}
	return doc, errors.Join(errs...)
}

func (v *Validator) signerRecord(data []byte, r byterange.ByteRange) (*certinfo.CertificateRecord, error) {
	blob, err := byterange.ExtractBlob(data, r)
	if err != nil {
		return nil, err
	}
	der, err := cms.SignerCertificate(blob, v.settings.CertificateSelection)
	if err != nil {
		return nil, err
	}
	return certinfo.FromDER(der, certinfo.WithLogger(v.logger))
}

// InfoFromPDF returns one record per signature in document order. Every
// signature is attempted: the records that decoded are returned together
// with the joined failures of the others, each wrapped in a SignatureError.
func (v *Validator) InfoFromPDF(path string) ([]*certinfo.CertificateRecord, error) {
	doc, err := v.loadDocument(path)
	if doc == nil {
		return nil, err
	}
	return doc.records, err
}

// InfoFromPEM returns the record of the first certificate in the PEM (or
// DER) file at path.
func (v *Validator) InfoFromPEM(path string) (*certinfo.CertificateRecord, error) {
	data, err := v.readFile(path)
	if err != nil {
		return nil, err
	}
	der, err := keys.FirstCertificateDER(data)
	if err != nil {
		var nce *keys.NoCertificateError
		if errors.As(err, &nce) {
			return nil, &cms.DecodeError{Layer: "pem", Expected: "CERTIFICATE block", Found: nce.Found(), Err: err}
		}
		return nil, err
	}
	return certinfo.FromDER(der, certinfo.WithLogger(v.logger))
}

// SignIsValid reports whether the signer certificate chosen by sel was
// issued by the certificate in issuerPath.
func (v *Validator) SignIsValid(pdfPath, issuerPath string, sel *trust.Selector) (bool, error) {
	records, err := v.InfoFromPDF(pdfPath)
	if err != nil {
		return false, err
	}
	issuer, err := v.InfoFromPEM(issuerPath)
	if err != nil {
		return false, err
	}
	ok := trust.SignIsValid(records, issuer.Certificate(), sel)
	v.logger.Debug("evaluated signature issuer", "pdf", pdfPath, "issuer", issuerPath, "selector", selectorString(sel), "valid", ok)
	return ok, nil
}

// CertIsValid reports whether the certificate in subjectPath was issued by
// the certificate in issuerPath.
func (v *Validator) CertIsValid(subjectPath, issuerPath string) (bool, error) {
	subject, err := v.InfoFromPEM(subjectPath)
	if err != nil {
		return false, err
	}
	issuer, err := v.InfoFromPEM(issuerPath)
	if err != nil {
		return false, err
	}
	return trust.CertIsValid(subject.Certificate(), issuer.Certificate()), nil
}

// SignMatchSubject reports whether the signer certificate chosen by sel is
// the certificate in subjectPath.
func (v *Validator) SignMatchSubject(pdfPath, subjectPath string, sel *trust.Selector) (bool, error) {
	records, err := v.InfoFromPDF(pdfPath)
	if err != nil {
		return false, err
	}
	subject, err := v.InfoFromPEM(subjectPath)
	if err != nil {
		return false, err
	}
	return trust.SignMatchSubject(records, subject.Certificate(), sel), nil
}

// SignatureIntact reports whether the CMS signature chosen by sel still
// verifies over the byte ranges it covers. The signer certificate chain is
// not evaluated.
func (v *Validator) SignatureIntact(pdfPath string, sel *trust.Selector) (bool, error) {
	doc, err := v.loadDocument(pdfPath)
	if err != nil {
		return false, err
	}
	rec := trust.Select(doc.records, sel)
	if rec == nil {
		return false, nil
	}
	r := doc.ranges[doc.indexOf(rec)]

	content, err := byterange.SignedContent(doc.data, r)
	if err != nil {
		return false, err
	}
	blob, err := byterange.ExtractBlob(doc.data, r)
	if err != nil {
		return false, err
	}
	if err := cms.VerifyDetached(blob, content); err != nil {
		if errors.Is(err, cms.ErrContentMismatch) {
			v.logger.Debug("signature does not verify", "pdf", pdfPath, "range", r.String(), "error", err)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *document) indexOf(rec *certinfo.CertificateRecord) int {
	for i, r := range d.records {
		if r == rec {
			return d.indexes[i]
		}
	}
	return -1
}

func selectorString(sel *trust.Selector) string {
	if sel == nil {
		return "last"
	}
	return sel.String()
}

// SignCount counts signatures with DefaultSettings.
func SignCount(path string) (int, error) {
	return NewValidator(nil).SignCount(path)
}

// InfoFromPDF decodes signer records with DefaultSettings.
func InfoFromPDF(path string) ([]*certinfo.CertificateRecord, error) {
	return NewValidator(nil).InfoFromPDF(path)
}

// InfoFromPEM decodes a certificate file with DefaultSettings.
func InfoFromPEM(path string) (*certinfo.CertificateRecord, error) {
	return NewValidator(nil).InfoFromPEM(path)
}

// SignIsValid runs Validator.SignIsValid with DefaultSettings.
func SignIsValid(pdfPath, issuerPath string, sel *trust.Selector) (bool, error) {
	return NewValidator(nil).SignIsValid(pdfPath, issuerPath, sel)
}

// CertIsValid runs Validator.CertIsValid with DefaultSettings.
func CertIsValid(subjectPath, issuerPath string) (bool, error) {
	return NewValidator(nil).CertIsValid(subjectPath, issuerPath)
}

// SignMatchSubject runs Validator.SignMatchSubject with DefaultSettings.
func SignMatchSubject(pdfPath, subjectPath string, sel *trust.Selector) (bool, error) {
	return NewValidator(nil).SignMatchSubject(pdfPath, subjectPath, sel)
}

// SignatureIntact runs Validator.SignatureIntact with DefaultSettings.
func SignatureIntact(pdfPath string, sel *trust.Selector) (bool, error) {
	return NewValidator(nil).SignatureIntact(pdfPath, sel)
}
