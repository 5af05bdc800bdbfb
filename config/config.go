package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/pdfsigcheck/pdf/byterange"
	"github.com/georgepadayatti/pdfsigcheck/sign/cms"
	"github.com/georgepadayatti/pdfsigcheck/sign/validation"
)

// Common errors
var (
	ErrConfigurationError = errors.New("configuration error")
	ErrUnexpectedField    = errors.New("unexpected field in configuration")
	ErrInvalidConfigType  = errors.New("configuration must be a dictionary")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err == nil {
		return ErrConfigurationError
	}
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

var (
	appKeys        = []string{"validation", "logging"}
	validationKeys = []string{"signer-certificate", "count-mode", "max-file-size"}
	loggingKeys    = []string{"level", "format", "output"}
)

// ValidationConfig contains the settings used when reading signatures.
type ValidationConfig struct {
	// SignerCertificate picks the signer certificate from each CMS
	// certificate set (last, first, signer-info).
	SignerCertificate string `yaml:"signer-certificate" json:"signer_certificate,omitempty"`

	// CountMode decides what counts as a signature (markers, ranges).
	CountMode string `yaml:"count-mode" json:"count_mode,omitempty"`

	// MaxFileSize bounds every file read, in bytes.
	MaxFileSize int64 `yaml:"max-file-size" json:"max_file_size,omitempty"`
}

// SetDefaults sets default values for validation configuration.
func (c *ValidationConfig) SetDefaults() {
	if c.SignerCertificate == "" {
		c.SignerCertificate = cms.SelectLast.String()
	}
	if c.CountMode == "" {
		c.CountMode = byterange.CountMarkers.String()
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = validation.DefaultMaxFileSize
	}
}

// Validate checks the configured values.
func (c *ValidationConfig) Validate() error {
	if _, err := cms.ParseCertificateSelection(c.SignerCertificate); err != nil {
		return &ConfigError{Field: "validation.signer-certificate", Message: err.Error(), Err: err}
	}
	if _, err := byterange.ParseCountMode(c.CountMode); err != nil {
		return &ConfigError{Field: "validation.count-mode", Message: err.Error(), Err: err}
	}
	if c.MaxFileSize < 0 {
		return NewConfigError("validation.max-file-size", "must not be negative")
	}
	return nil
}

// Settings converts the configuration into validation settings. The logger
// is left for the caller to set.
func (c *ValidationConfig) Settings() (*validation.Settings, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	selection, _ := cms.ParseCertificateSelection(c.SignerCertificate)
	mode, _ := byterange.ParseCountMode(c.CountMode)
	return &validation.Settings{
		CertificateSelection: selection,
		CountMode:            mode,
		MaxFileSize:          c.MaxFileSize,
	}, nil
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (text, json).
	Format string `yaml:"format" json:"format,omitempty"`

	// Output is the log output (stdout, stderr, or file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate checks the configured values.
func (c *LoggingConfig) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return &ConfigError{Field: "logging.level", Message: err.Error(), Err: err}
	}
	switch c.Format {
	case "text", "json":
	default:
		return NewConfigError("logging.format", fmt.Sprintf("unknown format %q", c.Format))
	}
	return nil
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	// Validation contains signature reading configuration.
	Validation *ValidationConfig `yaml:"validation" json:"validation,omitempty"`

	// Logging contains logging configuration.
	Logging *LoggingConfig `yaml:"logging" json:"logging,omitempty"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() *AppConfig {
	config := &AppConfig{}
	config.SetDefaults()
	return config
}

// SetDefaults fills missing sections and values.
func (c *AppConfig) SetDefaults() {
	if c.Validation == nil {
		c.Validation = &ValidationConfig{}
	}
	c.Validation.SetDefaults()
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.Validation.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// LoadAppConfig loads the complete application configuration from a file.
func LoadAppConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseAppConfig(data)
}

// ParseAppConfig parses, defaults and validates configuration from YAML
// data. Unknown keys are rejected.
func ParseAppConfig(data []byte) (*AppConfig, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := checkSection("application", appKeys, raw); err != nil {
		return nil, err
	}
	for name, expected := range map[string][]string{"validation": validationKeys, "logging": loggingKeys} {
		value, ok := raw[name]
		if !ok || value == nil {
			continue
		}
		section, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfigType, name)
		}
		if err := checkSection(name, expected, section); err != nil {
			return nil, err
		}
	}

	// Re-encode with dashed keys so underscore spellings reach the struct tags.
	normalized, err := yaml.Marshal(normalizeKeys(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config map: %w", err)
	}
	var config AppConfig
	if err := yaml.Unmarshal(normalized, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func checkSection(name string, expected []string, section map[string]any) error {
	return CheckConfigKeys(name, expected, slices.Sorted(maps.Keys(section)))
}

// CheckConfigKeys checks if all provided keys are valid for a given configuration type.
func CheckConfigKeys(configName string, expectedKeys, suppliedKeys []string) error {
	expectedSet := make(map[string]bool)
	for _, k := range expectedKeys {
		expectedSet[normalizeKey(k)] = true
	}

	var unexpected []string
	for _, k := range suppliedKeys {
		if !expectedSet[normalizeKey(k)] {
			unexpected = append(unexpected, k)
		}
	}

	if len(unexpected) > 0 {
		keyWord := "key"
		if len(unexpected) > 1 {
			keyWord = "keys"
		}
		return fmt.Errorf("%w: unexpected %s in configuration for %s: %s",
			ErrUnexpectedField, keyWord, configName, strings.Join(unexpected, ", "))
	}

	return nil
}

func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeKeys(nested)
		}
		out[normalizeKey(k)] = v
	}
	return out
}

// normalizeKey normalizes a configuration key (underscores to dashes).
func normalizeKey(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
