// Command pdfsigcheck inspects the signatures of PDF files and checks their
// signer certificates.
//
// Usage:
//
//	pdfsigcheck <command> [options] <args>
//
// Commands:
//
//	count       Count the signatures of a PDF file
//	info        Show the signer certificates of a PDF file
//	cert        Show a certificate from a PEM file
//	verify      Check that a signer certificate was issued by a PEM certificate
//	match       Check that a signer certificate is a PEM certificate
//	certverify  Check that one PEM certificate was issued by another
//	integrity   Check that a signature still covers its signed bytes
//	version     Show version information
//	help        Show help message
//
// Boolean commands print true or false and exit with status 1 when the
// answer is false. Errors exit with status 2.
//
// Examples:
//
//	# List signer certificates as JSON
//	pdfsigcheck info -format json document.pdf
//
//	# Check Bob's signature against a CA certificate
//	pdfsigcheck verify -issuer ca.pem -select subject.common_name=Bob document.pdf
//
//	# Use a configuration file
//	pdfsigcheck count -config pdfsigcheck.yaml document.pdf
package main

import (
	"os"

	"github.com/georgepadayatti/pdfsigcheck/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/pdfsigcheck
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime

	cli.Run(os.Args)
}
