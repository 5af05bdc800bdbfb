package trust

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Signature verification errors
var (
	// ErrAlgorithmNotSupported is returned when a signature algorithm is not supported.
	ErrAlgorithmNotSupported = errors.New("algorithm not supported")

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid signature")
)

// KeyScheme names the public key family a signature algorithm belongs to.
type KeyScheme int

const (
	SchemeUnknown KeyScheme = iota
	SchemeRSAPKCS1v15
	SchemeRSAPSS
	SchemeECDSA
	SchemeEd25519
)

// String returns the string representation of the scheme.
func (s KeyScheme) String() string {
	switch s {
	case SchemeRSAPKCS1v15:
		return "rsassa_pkcs1v15"
	case SchemeRSAPSS:
		return "rsassa_pss"
	case SchemeECDSA:
		return "ecdsa"
	case SchemeEd25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

// OIDs for certificate signature algorithms
var (
	// RSA algorithms
	OIDRSAWithSHA1     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	OIDRSAWithSHA256   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDRSAWithSHA384   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	OIDRSAWithSHA512   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	OIDRSAWithSHA3_256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 14}
	OIDRSAWithSHA3_384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 15}
	OIDRSAWithSHA3_512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 16}
	OIDRSAPSS          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}

	// ECDSA algorithms
	OIDECDSAWithSHA1     = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	OIDECDSAWithSHA256   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	OIDECDSAWithSHA384   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	OIDECDSAWithSHA512   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	OIDECDSAWithSHA3_256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 10}
	OIDECDSAWithSHA3_384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 11}
	OIDECDSAWithSHA3_512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 12}

	// EdDSA algorithms
	OIDEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}

	// Hash algorithms, as used in RSA-PSS parameters
	OIDSHA1     = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDSHA256   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDSHA384   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDSHA512   = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	OIDSHA3_256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 8}
	OIDSHA3_384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 9}
	OIDSHA3_512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 10}
)

var signatureAlgorithms = []struct {
	oid    asn1.ObjectIdentifier
	scheme KeyScheme
	hash   crypto.Hash
}{
	{OIDRSAWithSHA1, SchemeRSAPKCS1v15, crypto.SHA1},
	{OIDRSAWithSHA256, SchemeRSAPKCS1v15, crypto.SHA256},
	{OIDRSAWithSHA384, SchemeRSAPKCS1v15, crypto.SHA384},
	{OIDRSAWithSHA512, SchemeRSAPKCS1v15, crypto.SHA512},
	{OIDRSAWithSHA3_256, SchemeRSAPKCS1v15, crypto.SHA3_256},
	{OIDRSAWithSHA3_384, SchemeRSAPKCS1v15, crypto.SHA3_384},
	{OIDRSAWithSHA3_512, SchemeRSAPKCS1v15, crypto.SHA3_512},
	{OIDRSAPSS, SchemeRSAPSS, 0},
	{OIDECDSAWithSHA1, SchemeECDSA, crypto.SHA1},
	{OIDECDSAWithSHA256, SchemeECDSA, crypto.SHA256},
	{OIDECDSAWithSHA384, SchemeECDSA, crypto.SHA384},
	{OIDECDSAWithSHA512, SchemeECDSA, crypto.SHA512},
	{OIDECDSAWithSHA3_256, SchemeECDSA, crypto.SHA3_256},
	{OIDECDSAWithSHA3_384, SchemeECDSA, crypto.SHA3_384},
	{OIDECDSAWithSHA3_512, SchemeECDSA, crypto.SHA3_512},
	{OIDEd25519, SchemeEd25519, 0},
}

var hashAlgorithms = []struct {
	oid  asn1.ObjectIdentifier
	hash crypto.Hash
}{
	{OIDSHA1, crypto.SHA1},
	{OIDSHA256, crypto.SHA256},
	{OIDSHA384, crypto.SHA384},
	{OIDSHA512, crypto.SHA512},
	{OIDSHA3_256, crypto.SHA3_256},
	{OIDSHA3_384, crypto.SHA3_384},
	{OIDSHA3_512, crypto.SHA3_512},
}

// LookupSignatureAlgorithm returns the key scheme and digest of a signature
// algorithm OID. The digest is zero for RSA-PSS, whose digest lives in the
// algorithm parameters, and for Ed25519.
func LookupSignatureAlgorithm(oid asn1.ObjectIdentifier) (KeyScheme, crypto.Hash) {
	for _, a := range signatureAlgorithms {
		if a.oid.Equal(oid) {
			return a.scheme, a.hash
		}
	}
	return SchemeUnknown, 0
}

func lookupHash(oid asn1.ObjectIdentifier) crypto.Hash {
	for _, h := range hashAlgorithms {
		if h.oid.Equal(oid) {
			return h.hash
		}
	}
	return 0
}

// RSAPSSParams represents RSA-PSS parameters.
type RSAPSSParams struct {
	HashAlgorithm    pkix.AlgorithmIdentifier `asn1:"optional,explicit,tag:0"`
	MaskGenAlgorithm pkix.AlgorithmIdentifier `asn1:"optional,explicit,tag:1"`
	SaltLength       int                      `asn1:"optional,explicit,tag:2,default:20"`
	TrailerField     int                      `asn1:"optional,explicit,tag:3,default:1"`
}

// VerifySignature checks signature over signed with publicKey using the
// algorithm described by algo.
func VerifySignature(signature, signed []byte, publicKey crypto.PublicKey, algo pkix.AlgorithmIdentifier) error {
	scheme, hashAlgo := LookupSignatureAlgorithm(algo.Algorithm)

	switch scheme {
	case SchemeRSAPKCS1v15:
		return verifyRSAPKCS1v15(signature, signed, publicKey, hashAlgo)
	case SchemeRSAPSS:
		return verifyRSAPSS(signature, signed, publicKey, algo.Parameters)
	case SchemeECDSA:
		return verifyECDSA(signature, signed, publicKey, hashAlgo)
	case SchemeEd25519:
		return verifyEd25519(signature, signed, publicKey)
	default:
		return fmt.Errorf("%w: %s", ErrAlgorithmNotSupported, algo.Algorithm)
	}
}

// digest hashes data. SHA-3 variants come from x/crypto so they are
// available regardless of crypto.Hash registration.
func digest(h crypto.Hash, data []byte) ([]byte, error) {
	var hh hash.Hash
	switch h {
	case crypto.SHA3_256:
		hh = sha3.New256()
	case crypto.SHA3_384:
		hh = sha3.New384()
	case crypto.SHA3_512:
		hh = sha3.New512()
	default:
		if h == 0 || !h.Available() {
			return nil, fmt.Errorf("%w: hash %v", ErrAlgorithmNotSupported, h)
		}
		hh = h.New()
	}
	hh.Write(data)
	return hh.Sum(nil), nil
}

func verifyRSAPKCS1v15(signature, signed []byte, publicKey crypto.PublicKey, hashAlgo crypto.Hash) error {
	rsaKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: expected RSA public key, got %T", ErrInvalidSignature, publicKey)
	}
	hashed, err := digest(hashAlgo, signed)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(rsaKey, hashAlgo, hashed, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func verifyRSAPSS(signature, signed []byte, publicKey crypto.PublicKey, params asn1.RawValue) error {
	rsaKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: expected RSA public key, got %T", ErrInvalidSignature, publicKey)
	}

	pssParams := RSAPSSParams{SaltLength: 20}
	if len(params.Bytes) > 0 {
		if _, err := asn1.Unmarshal(params.FullBytes, &pssParams); err != nil {
			return fmt.Errorf("failed to parse PSS parameters: %w", err)
		}
	}

	hashAlgo := crypto.SHA1
	if len(pssParams.HashAlgorithm.Algorithm) > 0 {
		hashAlgo = lookupHash(pssParams.HashAlgorithm.Algorithm)
		if hashAlgo == 0 {
			return fmt.Errorf("%w: PSS hash %s", ErrAlgorithmNotSupported, pssParams.HashAlgorithm.Algorithm)
		}
	}
	hashed, err := digest(hashAlgo, signed)
	if err != nil {
		return err
	}

	opts := &rsa.PSSOptions{SaltLength: pssParams.SaltLength, Hash: hashAlgo}
	if err := rsa.VerifyPSS(rsaKey, hashAlgo, hashed, signature, opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func verifyECDSA(signature, signed []byte, publicKey crypto.PublicKey, hashAlgo crypto.Hash) error {
	ecdsaKey, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: expected ECDSA public key, got %T", ErrInvalidSignature, publicKey)
	}
	hashed, err := digest(hashAlgo, signed)
	if err != nil {
		return err
	}

	var ecdsaSig struct {
		R, S *big.Int
	}
	if _, err := asn1.Unmarshal(signature, &ecdsaSig); err == nil {
		if !ecdsa.Verify(ecdsaKey, hashed, ecdsaSig.R, ecdsaSig.S) {
			return ErrInvalidSignature
		}
		return nil
	}

	// Raw r || s
	keySize := (ecdsaKey.Curve.Params().BitSize + 7) / 8
	if len(signature) != 2*keySize {
		return fmt.Errorf("%w: ECDSA signature length %d", ErrInvalidSignature, len(signature))
	}
	r := new(big.Int).SetBytes(signature[:keySize])
	s := new(big.Int).SetBytes(signature[keySize:])
	if !ecdsa.Verify(ecdsaKey, hashed, r, s) {
		return ErrInvalidSignature
	}
	return nil
}

func verifyEd25519(signature, signed []byte, publicKey crypto.PublicKey) error {
	edKey, ok := publicKey.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("%w: expected Ed25519 public key, got %T", ErrInvalidSignature, publicKey)
	}
	if !ed25519.Verify(edKey, signed, signature) {
		return ErrInvalidSignature
	}
	return nil
}
