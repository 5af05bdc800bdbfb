// Package validation reads the signatures of a PDF document and answers
// questions about their signer certificates.
package validation

import (
	"log/slog"

	"github.com/georgepadayatti/pdfsigcheck/pdf/byterange"
	"github.com/georgepadayatti/pdfsigcheck/sign/cms"
)

// DefaultMaxFileSize is the largest input file read by default (64 MiB).
const DefaultMaxFileSize int64 = 64 << 20

// Settings controls how documents and certificates are read.
type Settings struct {
	// CertificateSelection decides which certificate of each CMS envelope
	// is the signer certificate.
	CertificateSelection cms.CertificateSelection

	// CountMode decides what SignCount counts.
	CountMode byterange.CountMode

	// MaxFileSize bounds every file read. Zero or less means
	// DefaultMaxFileSize.
	MaxFileSize int64

	// Logger receives debug traces. Nil discards them.
	Logger *slog.Logger
}

// DefaultSettings returns the default settings.
func DefaultSettings() *Settings {
	return &Settings{
		CertificateSelection: cms.SelectLast,
		CountMode:            byterange.CountMarkers,
		MaxFileSize:          DefaultMaxFileSize,
	}
}

func (s Settings) withDefaults() Settings {
	if s.MaxFileSize <= 0 {
		s.MaxFileSize = DefaultMaxFileSize
	}
	if s.Logger == nil {
		s.Logger = slog.New(slog.DiscardHandler)
	}
	return s
}
