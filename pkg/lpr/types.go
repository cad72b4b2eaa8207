package lpr

import (
	"errors"
	"fmt"
)

// Sentinel Errors returned by the lpr package.
var (
	ErrConnect         = errors.New("connect error")
	ErrTimeout         = errors.New("read timeout")
	ErrIO              = errors.New("i/o error")
	ErrProtocolAck     = errors.New("negative acknowledgment")
	ErrIncompleteWrite = errors.New("not all bytes have been written")
	ErrClosed          = errors.New("transport closed")
)

// DefaultPort is the well-known LPD port.
const DefaultPort = "515"

// Fallbacks used when the hostname or username cannot be determined.
const (
	FallbackHost = "lpr-host"
	FallbackUser = "lpr-user"
)

// Step identifies an acknowledged step of a print job submission.
type Step int

// Steps of a print job submission, in wire order.
const (
	StepReceiveJob Step = iota + 1
	StepControlSubcommand
	StepControlFile
	StepDataSubcommand
	StepDataFile
)

// String returns a human-readable name for the step.
func (s Step) String() string {
	switch s {
	case StepReceiveJob:
		return "receive job command"
	case StepControlSubcommand:
		return "receive control file subcommand"
	case StepControlFile:
		return "control file"
	case StepDataSubcommand:
		return "receive data file subcommand"
	case StepDataFile:
		return "data file"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// AckError is returned when the server answers a step with a non-zero
// acknowledgment byte. It matches [ErrProtocolAck] with errors.Is.
type AckError struct {
	Step  Step
	Value byte
}

// Error implements the error interface.
func (e *AckError) Error() string {
	return fmt.Sprintf("%v: %s: received 0x%02x", ErrProtocolAck, e.Step, e.Value)
}

// Is reports whether target is [ErrProtocolAck].
func (e *AckError) Is(target error) bool {
	return target == ErrProtocolAck //nolint:errorlint // sentinel comparison in Is method.
}

// JobIdentity names one print job submission.
type JobIdentity struct {
	Host    string
	User    string
	JobName string
}

// Provider returns an environment value such as the local hostname.
type Provider func() (string, error)
