package certinfo

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/pdfsigcheck/testhelper"
)

func mustNormalize(t *testing.T, cert *x509.Certificate, opts ...Option) *CertificateRecord {
	t.Helper()
	rec, err := Normalize(cert, opts...)
	require.NoError(t, err)
	return rec
}

func TestNormalizeFullName(t *testing.T) {
	alice := testhelper.GetRSALeafCertificate().Cert
	rec := mustNormalize(t, alice)

	require.NotNil(t, rec.Subject.CommonName)
	assert.Equal(t, "Alice", *rec.Subject.CommonName)
	require.NotNil(t, rec.Subject.Owner)
	assert.Equal(t, "Example Org", *rec.Subject.Owner)
	require.NotNil(t, rec.Subject.SerialNumber)
	assert.Equal(t, "IDCDE-0001", *rec.Subject.SerialNumber)
	require.NotNil(t, rec.Subject.Country)
	assert.Equal(t, "DE", *rec.Subject.Country)

	require.NotNil(t, rec.Issuer.CommonName)
	assert.Equal(t, "PDF Test RSA Root", *rec.Issuer.CommonName)
	assert.Nil(t, rec.Issuer.SerialNumber)

	require.NotNil(t, rec.Validity.From)
	require.NotNil(t, rec.Validity.To)
	assert.True(t, rec.Validity.From.Equal(alice.NotBefore))
	assert.True(t, rec.Validity.To.Equal(alice.NotAfter))
	assert.Equal(t, time.UTC, rec.Validity.From.Location())

	spki, err := x509.MarshalPKIXPublicKey(alice.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, Bytes(spki), rec.PublicKey)

	require.NotNil(t, rec.Signature)
	assert.Equal(t, hex.EncodeToString(alice.Signature), *rec.Signature)
	assert.Same(t, alice, rec.Certificate())
}

func TestNormalizeMissingAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rec := mustNormalize(t, testhelper.GetSelfSignedCertificate().Cert, WithLogger(logger))

	require.NotNil(t, rec.Subject.CommonName)
	assert.Equal(t, "Self Signed", *rec.Subject.CommonName)
	assert.Nil(t, rec.Subject.Owner)
	assert.Nil(t, rec.Subject.SerialNumber)
	assert.Nil(t, rec.Subject.Country)
	assert.Equal(t, rec.Subject, rec.Issuer)

	assert.Contains(t, buf.String(), "field=subject.owner")
	assert.Contains(t, buf.String(), "field=issuer.country")
	assert.NotContains(t, buf.String(), "field=subject.common_name")
}

func TestNormalizeUnicodeNFC(t *testing.T) {
	decomposed := "Jose\u0301 Mu\u0308ller"
	cert := testhelper.NewCertificate(t, pkix.Name{CommonName: decomposed}, nil).Cert

	rec := mustNormalize(t, cert)
	require.NotNil(t, rec.Subject.CommonName)
	assert.Equal(t, "Jos\u00e9 M\u00fcller", *rec.Subject.CommonName)
}

func TestNormalizeNil(t *testing.T) {
	_, err := Normalize(nil)
	var de *CertificateDecodeError
	assert.True(t, errors.As(err, &de))
}

func TestAttributeNonString(t *testing.T) {
	rdns := pkix.RDNSequence{
		{{Type: OIDCountry, Value: 42}},
		{{Type: OIDCommonName, Value: "Dana"}},
	}
	_, err := attribute(rdns, OIDCountry)
	assert.ErrorContains(t, err, "non-string value")

	cn, err := attribute(rdns, OIDCommonName)
	require.NoError(t, err)
	assert.Equal(t, "Dana", cn)

	_, err = attribute(rdns, OIDOrganization)
	assert.ErrorIs(t, err, errAbsent)
}

func TestNormalizeNameUnreadable(t *testing.T) {
	name := normalizeName(slog.New(slog.DiscardHandler), "subject", []byte{0x30, 0x05, 0x01})
	assert.Equal(t, Name{}, name)
}

func TestDecode(t *testing.T) {
	alice := testhelper.GetRSALeafCertificate().Cert

	cert, err := Decode(alice.Raw)
	require.NoError(t, err)
	assert.Equal(t, alice.Raw, cert.Raw)

	_, err = Decode([]byte("not a certificate"))
	var de *CertificateDecodeError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, de.Error(), "certificate decode error")

	rec, err := FromDER(alice.Raw)
	require.NoError(t, err)
	assert.Equal(t, alice.Raw, rec.Certificate().Raw)
}

func TestFieldsAndLookup(t *testing.T) {
	alice := testhelper.GetRSALeafCertificate().Cert
	rec := mustNormalize(t, alice)

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"subject.common_name", "Alice", true},
		{"subject.country", "DE", true},
		{"issuer.owner", "PDF Test Trust", true},
		{"issuer.serial_number", nil, false},
		{"validity.from", *rec.Validity.From, true},
		{"public_key", []byte(rec.PublicKey), true},
		{"signature", *rec.Signature, true},
		{"subject.common_name.extra", nil, false},
		{"subject.unknown", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := rec.Lookup(tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	sub, ok := rec.Lookup("subject")
	require.True(t, ok)
	assert.Len(t, sub, 4)
}

func TestEqual(t *testing.T) {
	alice := testhelper.GetRSALeafCertificate().Cert
	bob := testhelper.GetRSASecondLeafCertificate().Cert

	a1 := mustNormalize(t, alice)
	a2, err := FromDER(alice.Raw)
	require.NoError(t, err)

	assert.True(t, Equal(a1, a2))
	assert.False(t, Equal(a1, mustNormalize(t, bob)))
	assert.False(t, Equal(a1, nil))
	assert.True(t, Equal(nil, nil))
}

func TestSerialization(t *testing.T) {
	rec := mustNormalize(t, testhelper.GetSelfSignedCertificate().Cert)

	t.Run("JSON", func(t *testing.T) {
		data, err := json.Marshal(rec)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, map[string]any{"common_name": "Self Signed"}, m["subject"])
		assert.Equal(t, base64.StdEncoding.EncodeToString(rec.PublicKey), m["public_key"])
		assert.Equal(t, *rec.Signature, m["signature"])
		assert.Contains(t, m["validity"], "from")
	})

	t.Run("YAML", func(t *testing.T) {
		data, err := yaml.Marshal(rec)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, yaml.Unmarshal(data, &m))
		assert.Equal(t, map[string]any{"common_name": "Self Signed"}, m["subject"])
		assert.Equal(t, base64.StdEncoding.EncodeToString(rec.PublicKey), m["public_key"])
	})
}

func TestOIDs(t *testing.T) {
	assert.Equal(t, "2.5.4.3", OIDCommonName.String())
	assert.Equal(t, "2.5.4.10", OIDOrganization.String())
	assert.True(t, OIDCountry.Equal(asn1.ObjectIdentifier{2, 5, 4, 6}))
}
