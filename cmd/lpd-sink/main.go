// Lpd-sink is a minimal Line Printer Daemon that accepts print jobs and logs
// them, for testing LPD clients such as lpr.
//
// The server can be configured with the following options:
//
//   - `--address`: The address to listen on.
//   - `--spool-dir`: Directory to write received control and data files to.
//   - `--status-text`: Response to queue status requests.
//   - `--reject`: Step to answer with a negative acknowledgment, one of
//     receive-job, control-subcommand, control-file, data-subcommand,
//     data-file.
//
// The server can also be configured using environment variables:
//
//   - LPD_SINK_ADDRESS: The address to listen on.
//   - LPD_SINK_SPOOL_DIR: Directory to write received files to.
//
// Sample usage:
//
//	lpd-sink --address 127.0.0.1:1515 --spool-dir /tmp/spool
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/juliaogris/lpr/pkg/lpd"
	"github.com/juliaogris/lpr/pkg/lpr"
	"github.com/rs/zerolog"
)

const description = "Lpd-sink is a minimal Line Printer Daemon that accepts print jobs and logs them."

var rejectSteps = map[string]lpr.Step{
	"receive-job":        lpr.StepReceiveJob,
	"control-subcommand": lpr.StepControlSubcommand,
	"control-file":       lpr.StepControlFile,
	"data-subcommand":    lpr.StepDataSubcommand,
	"data-file":          lpr.StepDataFile,
}

type app struct {
	Address    string `short:"A" default:":515" help:"Address to listen on." env:"LPD_SINK_ADDRESS"`
	SpoolDir   string `type:"existingdir" help:"Directory to write received control and data files to." env:"LPD_SINK_SPOOL_DIR"`
	StatusText string `default:"no entries" help:"Response to queue status requests."`
	Reject     string `help:"Step to answer with a negative acknowledgment."`
}

func main() {
	opts := []kong.Option{kong.Description(description)}
	kctx := kong.Parse(&app{}, opts...)
	kctx.FatalIfErrorf(kctx.Run())
}

// Run is called by [kong] after flags have been validated and parsed.
func (a *app) Run() error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "lpd-sink").Logger()
	opts := []lpd.Option{
		lpd.WithLogger(log),
		lpd.WithStatusText(a.StatusText),
	}
	if a.SpoolDir != "" {
		opts = append(opts, lpd.WithSpoolDir(a.SpoolDir))
	}
	if a.Reject != "" {
		step, ok := rejectSteps[a.Reject]
		if !ok {
			return fmt.Errorf("unknown step %q", a.Reject)
		}
		opts = append(opts, lpd.WithAck(step, 1))
	}
	server := lpd.NewServer(opts...)
	server.StopOnSignals(os.Interrupt)
	lis, err := net.Listen("tcp", a.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Info().Str("address", lis.Addr().String()).Msg("starting server")
	if err := server.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
