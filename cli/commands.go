package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/georgepadayatti/pdfsigcheck/config"
	"github.com/georgepadayatti/pdfsigcheck/sign/trust"
	"github.com/georgepadayatti/pdfsigcheck/sign/validation"
)

// CommonOptions contains the flags shared by every command.
type CommonOptions struct {
	ConfigFile string
	Format     string
	Select     string
}

// command describes one subcommand's flags and usage text.
type command struct {
	name      string
	arguments string
	summary   string
	examples  []string
	format    bool
	selector  bool
	nargs     int
}

// environment is what a command runs against once flags and configuration
// are loaded.
type environment struct {
	opts      CommonOptions
	args      []string
	validator *validation.Validator
	logger    *slog.Logger
	selector  *trust.Selector
	closer    io.Closer
}

// Close releases the log output. The logger may write to that output, so a
// close failure goes to stderr.
func (e *environment) Close() {
	if e.closer == nil {
		return
	}
	if err := e.closer.Close(); err != nil {
		fmt.Fprintf(stderr, "Error: closing log output: %v\n", err)
	}
}

// fail reports err and returns the error exit code.
func (e *environment) fail(err error) int {
	e.logger.Error("command failed", "error", err)
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}

// parse handles flags, configuration and logging for c. A nil environment
// means the command already finished with the returned code.
func (c *command) parse(args []string, extra func(*flag.FlagSet)) (*environment, int) {
	flags := flag.NewFlagSet(c.name, flag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts CommonOptions
	flags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	if c.format {
		flags.StringVar(&opts.Format, "format", "text", "Output format (text, json, yaml)")
	}
	if c.selector {
		flags.StringVar(&opts.Select, "select", "", "Pick the signature whose certificate field matches, as path=value")
	}
	if extra != nil {
		extra(flags)
	}

	flags.Usage = func() {
		prog := programName()
		fmt.Fprintf(stderr, "Usage: %s %s [options] %s\n\n", prog, c.name, c.arguments)
		fmt.Fprintln(stderr, c.summary)
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Options:")
		flags.PrintDefaults()
		if len(c.examples) > 0 {
			fmt.Fprintln(stderr, "")
			fmt.Fprintln(stderr, "Examples:")
			for _, example := range c.examples {
				fmt.Fprintf(stderr, "  %s %s\n", prog, example)
			}
		}
	}

	var rest []string
	if len(args) > 2 {
		rest = args[2:]
	}
	if err := flags.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exitOK
		}
		return nil, exitError
	}
	if flags.NArg() != c.nargs {
		flags.Usage()
		return nil, exitError
	}
	if c.format {
		if _, err := newWriter(opts.Format); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return nil, exitError
		}
	}

	env, err := loadEnvironment(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitError
	}
	env.args = flags.Args()
	return env, exitOK
}

// loadEnvironment reads the configuration file, or the defaults when none is
// given, and builds the validator and logger from it.
func loadEnvironment(opts CommonOptions) (*environment, error) {
	cfg := config.DefaultAppConfig()
	if opts.ConfigFile != "" {
		loaded, err := config.LoadAppConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	settings, err := cfg.Validation.Settings()
	if err != nil {
		return nil, err
	}

	var sel *trust.Selector
	if opts.Select != "" {
		if sel, err = trust.ParseSelector(opts.Select); err != nil {
			return nil, err
		}
	}

	logger, closer, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	settings.Logger = logger

	logger.Debug("configuration loaded",
		"config", opts.ConfigFile,
		"signer_certificate", settings.CertificateSelection.String(),
		"count_mode", settings.CountMode.String())

	return &environment{
		opts:      opts,
		validator: validation.NewValidator(settings),
		logger:    logger,
		selector:  sel,
		closer:    closer,
	}, nil
}

// answer prints a boolean result and maps it to an exit code.
func answer(ok bool) int {
	fmt.Fprintln(stdout, ok)
	if !ok {
		return exitFalse
	}
	return exitOK
}

// CountCommand implements the 'count' command.
func CountCommand(args []string) int {
	c := &command{
		name:      "count",
		arguments: "<input.pdf>",
		summary:   "Print the number of signatures in a PDF file.",
		examples:  []string{"count document.pdf"},
		nargs:     1,
	}
	env, code := c.parse(args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	n, err := env.validator.SignCount(env.args[0])
	if err != nil {
		return env.fail(err)
	}
	fmt.Fprintln(stdout, n)
	return exitOK
}

// InfoCommand implements the 'info' command. Records that could be read are
// printed even when another signature fails.
func InfoCommand(args []string) int {
	c := &command{
		name:      "info",
		arguments: "<input.pdf>",
		summary:   "Show the signer certificate of every signature in a PDF file.",
		examples:  []string{"info document.pdf", "info -format json document.pdf"},
		format:    true,
		nargs:     1,
	}
	env, code := c.parse(args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	records, err := env.validator.InfoFromPDF(env.args[0])
	w, _ := newWriter(env.opts.Format)
	if werr := w.Records(stdout, records); werr != nil {
		return env.fail(werr)
	}
	if err != nil {
		return env.fail(err)
	}
	return exitOK
}

// CertCommand implements the 'cert' command.
func CertCommand(args []string) int {
	c := &command{
		name:      "cert",
		arguments: "<certificate.pem>",
		summary:   "Show the first certificate of a PEM or DER file.",
		examples:  []string{"cert -format yaml signer.pem"},
		format:    true,
		nargs:     1,
	}
	env, code := c.parse(args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	record, err := env.validator.InfoFromPEM(env.args[0])
	if err != nil {
		return env.fail(err)
	}
	w, _ := newWriter(env.opts.Format)
	if err := w.Record(stdout, record); err != nil {
		return env.fail(err)
	}
	return exitOK
}

// VerifyCommand implements the 'verify' command.
func VerifyCommand(args []string) int {
	var issuer string
	c := &command{
		name:      "verify",
		arguments: "<input.pdf>",
		summary:   "Check that a signer certificate of a PDF file was issued by the given certificate.",
		examples: []string{
			"verify -issuer ca.pem document.pdf",
			"verify -issuer ca.pem -select subject.common_name=Bob document.pdf",
		},
		selector: true,
		nargs:    1,
	}
	env, code := c.parse(args, func(flags *flag.FlagSet) {
		flags.StringVar(&issuer, "issuer", "", "Issuer certificate file (PEM or DER), required")
	})
	if env == nil {
		return code
	}
	defer env.Close()

	if issuer == "" {
		return env.fail(errors.New("-issuer is required"))
	}
	ok, err := env.validator.SignIsValid(env.args[0], issuer, env.selector)
	if err != nil {
		return env.fail(err)
	}
	return answer(ok)
}

// MatchCommand implements the 'match' command.
func MatchCommand(args []string) int {
	var subject string
	c := &command{
		name:      "match",
		arguments: "<input.pdf>",
		summary:   "Check that a signer certificate of a PDF file is exactly the given certificate.",
		examples:  []string{"match -subject alice.pem document.pdf"},
		selector:  true,
		nargs:     1,
	}
	env, code := c.parse(args, func(flags *flag.FlagSet) {
		flags.StringVar(&subject, "subject", "", "Expected signer certificate file (PEM or DER), required")
	})
	if env == nil {
		return code
	}
	defer env.Close()

	if subject == "" {
		return env.fail(errors.New("-subject is required"))
	}
	ok, err := env.validator.SignMatchSubject(env.args[0], subject, env.selector)
	if err != nil {
		return env.fail(err)
	}
	return answer(ok)
}

// CertVerifyCommand implements the 'certverify' command.
func CertVerifyCommand(args []string) int {
	c := &command{
		name:      "certverify",
		arguments: "<subject.pem> <issuer.pem>",
		summary:   "Check that the subject certificate is signed by the issuer certificate.",
		examples:  []string{"certverify alice.pem ca.pem"},
		nargs:     2,
	}
	env, code := c.parse(args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	ok, err := env.validator.CertIsValid(env.args[0], env.args[1])
	if err != nil {
		return env.fail(err)
	}
	return answer(ok)
}

// IntegrityCommand implements the 'integrity' command.
func IntegrityCommand(args []string) int {
	c := &command{
		name:      "integrity",
		arguments: "<input.pdf>",
		summary:   "Check that a signature still matches the bytes its ByteRange covers.",
		examples:  []string{"integrity document.pdf", "integrity -select subject.country=FR document.pdf"},
		selector:  true,
		nargs:     1,
	}
	env, code := c.parse(args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	ok, err := env.validator.SignatureIntact(env.args[0], env.selector)
	if err != nil {
		return env.fail(err)
	}
	return answer(ok)
}
