package keys

import (
	"crypto/x509"

	"software.sslmate.com/src/go-pkcs12"
)

// pkcs12Certificates returns the certificates of an unprotected PKCS#12
// archive, trust stores first. The leaf of a key archive comes before its
// CA certificates. ok is false when data is not such an archive.
func pkcs12Certificates(data []byte) (ders [][]byte, ok bool) {
	certs, err := pkcs12.DecodeTrustStore(data, "")
	if err != nil {
		_, leaf, caCerts, chainErr := pkcs12.DecodeChain(data, "")
		if chainErr != nil {
			return nil, false
		}
		certs = append([]*x509.Certificate{leaf}, caCerts...)
	}
	if len(certs) == 0 {
		return nil, false
	}
	for _, cert := range certs {
		ders = append(ders, cert.Raw)
	}
	return ders, true
}
