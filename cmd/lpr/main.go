// Lpr is a client CLI for printers and print spoolers that speak the Line
// Printer Daemon protocol.
//
// It supports the following commands:
//
//   - print: submits a file as a print job, optionally wrapped between a
//     header file and a PJL end-of-job trailer.
//   - status: prints the short status of the printer's queue.
//
// Each command requires the address of the printer. Port 515 is used unless
// the address names another port.
//
// The CLI optionally uses environment variables and a TOML configuration
// file, ~/.config/lpr/config.toml by default, to set flags. The following
// environment variables are supported:
//
//   - LPR_TIMEOUT: read timeout, e.g. "5s".
//   - LPR_VERBOSE: log every protocol step to stderr.
//   - LPR_QUEUE: queue print jobs are submitted to.
//   - LPR_STATUS_QUEUE: queue named in status requests.
//
// Example usage:
//
//	lpr print 10.0.0.7 report.ps
//	lpr print --header pjl-header.bin printer.local report.pcl
//	lpr status -v printer.local
//	lpr [COMMAND] --help
package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"github.com/juliaogris/lpr/pkg/lpr"
	"github.com/rs/zerolog"
)

const description = "Lpr is a client CLI for the classic Line Printer Daemon protocol."

const defaultConfigFile = "~/.config/lpr/config.toml"

type app struct {
	Config kong.ConfigFlag `help:"TOML configuration file." env:"LPR_CONFIG"`

	Print  printCmd  `cmd:"" help:"Print a file."`
	Status statusCmd `cmd:"" help:"Print the status of the queue."`
}

func main() {
	var writer io.Writer = os.Stdout
	kctx := kong.Parse(&app{}, options(&writer)...)
	kctx.FatalIfErrorf(kctx.Run())
}

// options returns the [kong] options shared by main and tests.
//
// The pointer to the io.Writer is required to keep the io.Writer type when
// passing through an `any` parameter on the [kong.Bind] function.
func options(w *io.Writer) []kong.Option {
	return []kong.Option{
		kong.Bind(w),
		kong.Description(description),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Configuration(tomlLoader, defaultConfigFile),
	}
}

type printCmd struct {
	cmd
	File   string `arg:"" required:"" type:"existingfile" help:"File to print."`
	Header string `type:"existingfile" help:"File with header bytes. Wraps the print data with the header and a PJL end-of-job trailer."`
}

type statusCmd struct {
	cmd
	StatusQueue string `help:"Queue named in the status request. Empty leaves the choice to the server." env:"LPR_STATUS_QUEUE"`
}

type cmd struct {
	Printer string        `arg:"" required:"" help:"Address of the printer, host or host:port."`
	Timeout time.Duration `default:"4.2s" help:"Read timeout for every server response." env:"LPR_TIMEOUT"`
	Verbose bool          `short:"v" help:"Log every protocol step to stderr." env:"LPR_VERBOSE"`
	Queue   string        `default:"lp" help:"Queue print jobs are submitted to." env:"LPR_QUEUE"`

	transport *lpr.Transport
	log       zerolog.Logger
	w         io.Writer // can be overridden for testing
}

// Run is called by [kong] when the CLI arguments contain the `print` command.
func (c *printCmd) Run() error {
	session := c.newSession()
	if c.Header == "" {
		if err := session.PrintFile(c.File); err != nil {
			return fmt.Errorf("failed to print %q: %w", c.File, err)
		}
		return nil
	}
	header, err := os.ReadFile(c.Header)
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := session.PrintFileWithHeader(c.File, header); err != nil {
		return fmt.Errorf("failed to print %q: %w", c.File, err)
	}
	return nil
}

// Run is called by [kong] when the CLI arguments contain the `status` command.
func (c *statusCmd) Run() error {
	session := c.newSession(lpr.WithStatusQueue(c.StatusQueue))
	status, err := session.Status()
	if err != nil {
		return fmt.Errorf("failed to get queue status: %w", err)
	}
	if _, err := fmt.Fprintln(c.w, status); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

// AfterApply is called by [kong] immediately after flag validation and
// assignment and _before_ a command's Run method. It sets up the logger and
// connects to the printer.
func (c *cmd) AfterApply(w *io.Writer) error {
	c.w = cmp.Or(*w, io.Writer(os.Stdout))
	c.log = newLogger(c.Verbose)
	transport, err := lpr.Dial(context.Background(), c.Printer, c.Timeout, lpr.WithTransportLogger(c.log))
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.transport = transport
	return nil
}

// AfterRun is called by [kong] immediately after a command's Run method
// completes. It closes the connection to the printer.
func (c *cmd) AfterRun() error {
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("after run: %w", err)
	}
	return nil
}

func (c *cmd) newSession(opts ...lpr.Option) *lpr.Session {
	opts = append([]lpr.Option{lpr.WithQueue(c.Queue), lpr.WithLogger(c.log)}, opts...)
	return lpr.NewSession(c.transport, opts...)
}

// newLogger creates a console logger on stderr. Verbose output includes
// every protocol step; otherwise only warnings and errors are logged.
func newLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "lpr").Logger()
}

// tomlLoader is a [kong.ConfigurationLoader] for TOML files. Top-level keys
// are flag names, written with either dashes or underscores.
func tomlLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("cannot decode TOML configuration: %w", err)
	}
	var resolver kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		if v, ok := values[flag.Name]; ok {
			return v, nil
		}
		if v, ok := values[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
			return v, nil
		}
		return nil, nil //nolint:nilnil // nil value means the flag is not configured.
	}
	return resolver, nil
}
