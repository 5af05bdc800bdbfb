package cli

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/pdfsigcheck/testhelper"
)

// runCLI runs the CLI with captured output and returns the exit code.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var out, errOut bytes.Buffer
	oldStdout, oldStderr, oldExit := stdout, stderr, osExit
	stdout, stderr = &out, &errOut
	code := exitOK
	osExit = func(c int) { code = c }
	defer func() {
		stdout, stderr, osExit = oldStdout, oldStderr, oldExit
	}()

	Run(append([]string{"pdfsigcheck"}, args...))
	return code, out.String(), errOut.String()
}

type files struct {
	dir       string
	pdf       string
	root      string
	unrelated string
	alice     string
	bob       string
	config    string
}

func newFiles(t *testing.T) *files {
	t.Helper()
	dir := t.TempDir()
	root := testhelper.GetRSARootCertificate()
	alice := testhelper.GetRSALeafCertificate()
	bob := testhelper.GetRSASecondLeafCertificate()

	data, err := testhelper.BuildSignedPDF(
		testhelper.CMSSigner(alice, []*x509.Certificate{root.Cert}),
		testhelper.CMSSigner(bob, []*x509.Certificate{root.Cert}),
	)
	require.NoError(t, err)

	return &files{
		dir:       dir,
		pdf:       testhelper.WriteFile(t, dir, "signed.pdf", data),
		root:      testhelper.WritePEM(t, dir, "root.pem", root.Cert),
		unrelated: testhelper.WritePEM(t, dir, "unrelated.pem", testhelper.GetUnrelatedRootCertificate().Cert),
		alice:     testhelper.WritePEM(t, dir, "alice.pem", alice.Cert),
		bob:       testhelper.WritePEM(t, dir, "bob.pem", bob.Cert),
		config: testhelper.WriteFile(t, dir, "app.yaml", []byte(
			"validation:\n  signer-certificate: first\nlogging:\n  output: "+filepath.Join(dir, "app.log")+"\n")),
	}
}

func TestRunUsage(t *testing.T) {
	code, out, _ := runCLI(t)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "pdfsigcheck - PDF signature certificate inspection tool")

	code, _, errOut := runCLI(t, "sign")
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "Unknown command: sign")
}

func TestVersionCommand(t *testing.T) {
	oldVersion := Version
	Version = "1.2.3"
	defer func() { Version = oldVersion }()

	_, out, _ := runCLI(t, "version")
	assert.Contains(t, out, "pdfsigcheck version 1.2.3")
}

func TestCountCommand(t *testing.T) {
	f := newFiles(t)

	code, out, _ := runCLI(t, "count", f.pdf)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "2\n", out)

	code, _, _ = runCLI(t, "count", filepath.Join(f.dir, "missing.pdf"))
	assert.Equal(t, exitError, code, "missing file")

	code, _, _ = runCLI(t, "count")
	assert.Equal(t, exitError, code, "no arguments")

	code, _, errOut := runCLI(t, "count", "-h")
	assert.Equal(t, exitOK, code, "help")
	assert.Contains(t, errOut, "Usage:")
}

func TestInfoCommand(t *testing.T) {
	f := newFiles(t)

	t.Run("JSON", func(t *testing.T) {
		code, out, _ := runCLI(t, "info", "-format", "json", f.pdf)
		require.Equal(t, exitOK, code)

		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &records), out)
		require.Len(t, records, 2)
		for i, want := range []string{"Alice", "Bob"} {
			subject, ok := records[i]["subject"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, want, subject["common_name"], "record %d", i)
		}
	})

	t.Run("YAML", func(t *testing.T) {
		code, out, _ := runCLI(t, "info", "-format", "yaml", f.pdf)
		require.Equal(t, exitOK, code)

		var records []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &records), out)
		assert.Len(t, records, 2)
		assert.Contains(t, out, "common_name: Bob")
	})

	t.Run("Text", func(t *testing.T) {
		_, out, _ := runCLI(t, "info", f.pdf)
		for _, want := range []string{"Signature 1:", "Signature 2:", "Common Name:   Bob", "Country:       FR"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("Config", func(t *testing.T) {
		code, out, _ := runCLI(t, "info", "-config", f.config, "-format", "json", f.pdf)
		require.Equal(t, exitOK, code)
		assert.Contains(t, out, `"common_name": "PDF Test RSA Root"`, "first certificate selected")
	})

	t.Run("BadFormat", func(t *testing.T) {
		code, _, _ := runCLI(t, "info", "-format", "xml", f.pdf)
		assert.Equal(t, exitError, code)
	})

	t.Run("BadConfig", func(t *testing.T) {
		bad := testhelper.WriteFile(t, f.dir, "bad.yaml", []byte("validation:\n  count-mode: pages\n"))
		code, _, errOut := runCLI(t, "info", "-config", bad, f.pdf)
		assert.Equal(t, exitError, code)
		assert.Contains(t, errOut, "validation.count-mode")
	})

	t.Run("HugeByteRange", func(t *testing.T) {
		huge := testhelper.WriteFile(t, f.dir, "huge.pdf", []byte(
			"%PDF-1.7\n<< /Type /Sig /ByteRange [0 9223372036854775807 20 0] /Contents <00> >>\n%%EOF\n"))
		var code int
		var errOut string
		require.NotPanics(t, func() { code, _, errOut = runCLI(t, "info", huge) })
		assert.Equal(t, exitError, code)
		assert.Contains(t, errOut, "malformed byte range")
	})
}

func TestCertCommand(t *testing.T) {
	f := newFiles(t)

	code, out, _ := runCLI(t, "cert", "-format", "json", f.alice)
	require.Equal(t, exitOK, code)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	subject, ok := record["subject"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "IDCDE-0001", subject["serial_number"])

	_, out, _ = runCLI(t, "cert", f.root)
	assert.True(t, strings.HasPrefix(out, "Certificate:"), "text output %q", out)

	code, _, _ = runCLI(t, "cert", f.pdf)
	assert.Equal(t, exitError, code, "file without certificates")
}

func TestBooleanCommands(t *testing.T) {
	f := newFiles(t)

	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"VerifyLastSignature", []string{"verify", "-issuer", f.root, f.pdf}, exitOK, "true\n"},
		{"VerifyUnrelatedIssuer", []string{"verify", "-issuer", f.unrelated, f.pdf}, exitFalse, "false\n"},
		{"VerifySelected", []string{"verify", "-issuer", f.root, "-select", "subject.common_name=Alice", f.pdf}, exitOK, "true\n"},
		{"VerifyNoMatch", []string{"verify", "-issuer", f.root, "-select", "subject.common_name=Mallory", f.pdf}, exitFalse, "false\n"},
		{"VerifyMissingIssuer", []string{"verify", f.pdf}, exitError, ""},
		{"VerifyBadSelector", []string{"verify", "-issuer", f.root, "-select", "common_name", f.pdf}, exitError, ""},
		{"MatchLastSignature", []string{"match", "-subject", f.bob, f.pdf}, exitOK, "true\n"},
		{"MatchOtherSigner", []string{"match", "-subject", f.alice, f.pdf}, exitFalse, "false\n"},
		{"MatchSelected", []string{"match", "-subject", f.alice, "-select", "subject.country=DE", f.pdf}, exitOK, "true\n"},
		{"CertVerify", []string{"certverify", f.alice, f.root}, exitOK, "true\n"},
		{"CertVerifyReversed", []string{"certverify", f.root, f.alice}, exitFalse, "false\n"},
		{"CertVerifyOneArgument", []string{"certverify", f.alice}, exitError, ""},
		{"Integrity", []string{"integrity", f.pdf}, exitOK, "true\n"},
		{"IntegritySelected", []string{"integrity", "-select", "subject.common_name=Alice", f.pdf}, exitOK, "true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code, "stderr: %s", errOut)
			assert.Equal(t, tt.out, out)
		})
	}
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestEnvironmentClose(t *testing.T) {
	var errOut bytes.Buffer
	oldStderr := stderr
	stderr = &errOut
	defer func() { stderr = oldStderr }()

	env := &environment{logger: slog.New(slog.DiscardHandler), closer: failingCloser{}}
	env.Close()
	assert.Equal(t, "Error: closing log output: disk full\n", errOut.String())

	errOut.Reset()
	(&environment{}).Close()
	assert.Empty(t, errOut.String())
}

func TestNewWriter(t *testing.T) {
	for _, format := range []string{"", "text", "json", "yaml"} {
		_, err := newWriter(format)
		assert.NoError(t, err, "newWriter(%q)", format)
	}
	_, err := newWriter("xml")
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, textWriter{}.Records(&buf, nil))
	assert.Equal(t, "No signatures found\n", buf.String())

	buf.Reset()
	require.NoError(t, jsonWriter{}.Records(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}
