// Package testhelper builds certificates, CMS signatures and signed PDF files
// for unit tests. It should only be used in tests.
package testhelper

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/sha3"
)

// CertTuple couples a certificate with its private key.
type CertTuple struct {
	Cert       *x509.Certificate
	PrivateKey crypto.Signer
}

var (
	rsaRoot       CertTuple
	rsaLeafAlice  CertTuple
	rsaLeafBob    CertTuple
	unrelatedRoot CertTuple
	ecdsaRoot     CertTuple
	ecdsaLeaf     CertTuple
	selfSigned    CertTuple

	setupCertificatesOnce sync.Once
)

// GetRSARootCertificate returns a self-signed RSA root.
func GetRSARootCertificate() CertTuple {
	setupCertificates()
	return rsaRoot
}

// GetRSALeafCertificate returns an RSA leaf issued by the RSA root with
// subject CN "Alice".
func GetRSALeafCertificate() CertTuple {
	setupCertificates()
	return rsaLeafAlice
}

// GetRSASecondLeafCertificate returns an RSA leaf issued by the RSA root with
// subject CN "Bob".
func GetRSASecondLeafCertificate() CertTuple {
	setupCertificates()
	return rsaLeafBob
}

// GetUnrelatedRootCertificate returns a self-signed RSA root that issued
// none of the other certificates.
func GetUnrelatedRootCertificate() CertTuple {
	setupCertificates()
	return unrelatedRoot
}

// GetECRootCertificate returns a self-signed ECDSA P-256 root.
func GetECRootCertificate() CertTuple {
	setupCertificates()
	return ecdsaRoot
}

// GetECLeafCertificate returns an ECDSA leaf issued by the ECDSA root.
func GetECLeafCertificate() CertTuple {
	setupCertificates()
	return ecdsaLeaf
}

// GetSelfSignedCertificate returns a self-signed certificate with a bare
// subject (common name only).
func GetSelfSignedCertificate() CertTuple {
	setupCertificates()
	return selfSigned
}

func setupCertificates() {
	setupCertificatesOnce.Do(func() {
		rsaRoot = newRSACertTuple(pkix.Name{
			CommonName:   "PDF Test RSA Root",
			Organization: []string{"PDF Test Trust"},
			Country:      []string{"NL"},
		}, nil)
		rsaLeafAlice = newRSACertTuple(pkix.Name{
			CommonName:   "Alice",
			Organization: []string{"Example Org"},
			Country:      []string{"DE"},
			SerialNumber: "IDCDE-0001",
		}, &rsaRoot)
		rsaLeafBob = newRSACertTuple(pkix.Name{
			CommonName:   "Bob",
			Organization: []string{"Example Org"},
			Country:      []string{"FR"},
			SerialNumber: "IDCFR-0002",
		}, &rsaRoot)
		unrelatedRoot = newRSACertTuple(pkix.Name{
			CommonName: "Unrelated Root",
		}, nil)
		ecdsaRoot = newECCertTuple(pkix.Name{
			CommonName:   "PDF Test EC Root",
			Organization: []string{"PDF Test Trust"},
		}, nil)
		ecdsaLeaf = newECCertTuple(pkix.Name{
			CommonName: "Carol",
			Country:    []string{"BE"},
		}, &ecdsaRoot)
		selfSigned = newRSACertTuple(pkix.Name{CommonName: "Self Signed"}, nil)
	})
}

func newRSACertTuple(name pkix.Name, issuer *CertTuple) CertTuple {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return newCertTuple(name, key, issuer)
}

func newECCertTuple(name pkix.Name, issuer *CertTuple) CertTuple {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}
	return newCertTuple(name, key, issuer)
}

func newCertTuple(name pkix.Name, key crypto.Signer, issuer *CertTuple) CertTuple {
	template := certTemplate(name, issuer == nil)
	parent := template
	signer := key
	if issuer != nil {
		parent = issuer.Cert
		signer = issuer.PrivateKey
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent, key.Public(), signer)
	if err != nil {
		panic(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic(err)
	}
	return CertTuple{Cert: cert, PrivateKey: key}
}

func certTemplate(name pkix.Name, isRoot bool) *x509.Certificate {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		panic(err)
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               name,
		NotBefore:             time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
		NotAfter:              time.Now().AddDate(1, 0, 0).UTC().Truncate(time.Second),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		BasicConstraintsValid: true,
	}
	if isRoot {
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign
	}
	return template
}

// OIDECDSAWithSHA3_256 is id-ecdsa-with-sha3-256.
var OIDECDSAWithSHA3_256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 10}

type tbsCertificate struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       *big.Int
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           asn1.RawValue
	Subject            asn1.RawValue
	PublicKey          asn1.RawValue
	UniqueID           asn1.BitString   `asn1:"optional,tag:1"`
	SubjectUniqueID    asn1.BitString   `asn1:"optional,tag:2"`
	Extensions         []pkix.Extension `asn1:"omitempty,optional,explicit,tag:3"`
}

type certificate struct {
	TBSCertificate     asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

// ReSignECDSAWithSHA3 re-issues cert with ecdsa-with-SHA3-256 using the
// issuer's ECDSA key. crypto/x509 cannot create such certificates itself.
func ReSignECDSAWithSHA3(t testing.TB, cert *x509.Certificate, issuerKey *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	var tbs tbsCertificate
	if _, err := asn1.Unmarshal(cert.RawTBSCertificate, &tbs); err != nil {
		t.Fatalf("failed to parse TBSCertificate: %v", err)
	}
	algo := pkix.AlgorithmIdentifier{Algorithm: OIDECDSAWithSHA3_256}
	tbs.Raw = nil
	tbs.SignatureAlgorithm = algo
	tbsDER, err := asn1.Marshal(tbs)
	if err != nil {
		t.Fatalf("failed to marshal TBSCertificate: %v", err)
	}

	digest := sha3.Sum256(tbsDER)
	sig, err := ecdsa.SignASN1(rand.Reader, issuerKey, digest[:])
	if err != nil {
		t.Fatalf("failed to sign TBSCertificate: %v", err)
	}

	der, err := asn1.Marshal(certificate{
		TBSCertificate:     asn1.RawValue{FullBytes: tbsDER},
		SignatureAlgorithm: algo,
		SignatureValue:     asn1.BitString{Bytes: sig, BitLength: len(sig) * 8},
	})
	if err != nil {
		t.Fatalf("failed to marshal certificate: %v", err)
	}
	resigned, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse re-signed certificate: %v", err)
	}
	return resigned
}

// NewCertificate issues a fresh RSA certificate for name. A nil issuer
// produces a self-signed certificate.
func NewCertificate(t testing.TB, name pkix.Name, issuer *CertTuple) CertTuple {
	t.Helper()
	return newRSACertTuple(name, issuer)
}

// EncodePEM returns the PEM encoding of cert.
func EncodePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// WritePEM writes cert as a PEM file named name inside dir.
func WritePEM(t testing.TB, dir, name string, cert *x509.Certificate) string {
	t.Helper()
	return WriteFile(t, dir, name, EncodePEM(cert))
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
