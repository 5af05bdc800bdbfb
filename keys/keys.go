// Package keys provides utilities for loading certificates from PEM, DER and
// PKCS#12 encoded data.
package keys

import (
	"bytes"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrNoCertFound = errors.New("no certificate found in data")
)

const certificateBlockType = "CERTIFICATE"

// NoCertificateError is returned when PEM data holds no CERTIFICATE block.
// BlockTypes lists the types of the blocks that were present.
type NoCertificateError struct {
	BlockTypes []string
}

func (e *NoCertificateError) Error() string {
	return fmt.Sprintf("%s: found %s", ErrNoCertFound, e.Found())
}

func (e *NoCertificateError) Unwrap() error {
	return ErrNoCertFound
}

// Found describes what the data held instead of a certificate.
func (e *NoCertificateError) Found() string {
	if len(e.BlockTypes) == 0 {
		return "no PEM blocks"
	}
	return strings.Join(e.BlockTypes, ", ") + " blocks"
}

// CertificateDERs returns the DER encodings of all certificates in data.
// PEM input yields every CERTIFICATE block in order. A PKCS#12 archive
// without a password yields its certificates. Any other input is returned
// as a single DER certificate without being parsed.
func CertificateDERs(data []byte) ([][]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &NoCertificateError{}
	}
	if !isPEM(data) {
		if ders, ok := pkcs12Certificates(data); ok {
			return ders, nil
		}
		return [][]byte{data}, nil
	}

	var (
		ders  [][]byte
		other []string
	)
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == certificateBlockType {
			ders = append(ders, block.Bytes)
			continue
		}
		other = append(other, block.Type)
	}
	if len(ders) == 0 {
		return nil, &NoCertificateError{BlockTypes: other}
	}
	return ders, nil
}

// FirstCertificateDER returns the DER encoding of the first certificate in
// data.
func FirstCertificateDER(data []byte) ([]byte, error) {
	ders, err := CertificateDERs(data)
	if err != nil {
		return nil, err
	}
	return ders[0], nil
}

// isPEM checks if the data appears to be PEM encoded.
func isPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN "))
}
