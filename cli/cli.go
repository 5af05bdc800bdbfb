// Package cli provides the command-line interface for inspecting PDF
// signatures and checking their signer certificates.
package cli

import (
	"fmt"
	"io"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Exit codes. Boolean commands exit with exitFalse when the answer is no.
const (
	exitOK    = 0
	exitFalse = 1
	exitError = 2
)

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	var code int
	switch command := args[1]; command {
	case "count":
		code = CountCommand(args)
	case "info":
		code = InfoCommand(args)
	case "cert":
		code = CertCommand(args)
	case "verify":
		code = VerifyCommand(args)
	case "match":
		code = MatchCommand(args)
	case "certverify":
		code = CertVerifyCommand(args)
	case "integrity":
		code = IntegrityCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		Usage()
		code = exitError
	}

	if code != exitOK {
		osExit(code)
	}
}

// Usage prints the CLI usage information.
func Usage() {
	prog := programName()
	fmt.Fprintf(stdout, "pdfsigcheck - PDF signature certificate inspection tool\n\n")
	fmt.Fprintf(stdout, "Usage: %s <command> [options] <args>\n\n", prog)
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  count       Count the signatures of a PDF file")
	fmt.Fprintln(stdout, "  info        Show the signer certificates of a PDF file")
	fmt.Fprintln(stdout, "  cert        Show a certificate from a PEM file")
	fmt.Fprintln(stdout, "  verify      Check that a signer certificate was issued by a PEM certificate")
	fmt.Fprintln(stdout, "  match       Check that a signer certificate is a PEM certificate")
	fmt.Fprintln(stdout, "  certverify  Check that one PEM certificate was issued by another")
	fmt.Fprintln(stdout, "  integrity   Check that a signature still covers its signed bytes")
	fmt.Fprintln(stdout, "  version     Show version information")
	fmt.Fprintln(stdout, "  help        Show this help message")
	fmt.Fprintln(stdout, "")
	fmt.Fprintf(stdout, "Use '%s <command> -h' for command-specific help\n", prog)
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Examples:")
	fmt.Fprintf(stdout, "  %s count document.pdf\n", prog)
	fmt.Fprintf(stdout, "  %s info -format json document.pdf\n", prog)
	fmt.Fprintf(stdout, "  %s verify -issuer ca.pem -select subject.common_name=Bob document.pdf\n", prog)
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Fprintf(stdout, "pdfsigcheck version %s\n", Version)
	fmt.Fprintf(stdout, "Build time: %s\n", BuildTime)
}

func programName() string {
	if len(os.Args) > 0 {
		return os.Args[0]
	}
	return "pdfsigcheck"
}
