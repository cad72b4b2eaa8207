package lpr

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// DefaultQueue is the print queue jobs are submitted to.
const DefaultQueue = "lp"

// Command and subcommand codes of the LPD protocol.
const (
	cmdReceiveJob     = "\x02"
	cmdQueueState     = "\x04"
	subcmdControlFile = "\x02"
	subcmdDataFile    = "\x03"
)

// Session submits print jobs and status queries over a [Transport].
//
// Every framed write is followed by exactly one acknowledgment byte read
// before the next step proceeds. A Session is not safe for concurrent use;
// concurrent submissions need one Session and Transport each.
type Session struct {
	transport   *Transport
	hostname    Provider
	username    Provider
	pid         int
	queue       string
	statusQueue string
	log         zerolog.Logger
	job         JobIdentity
}

// Option is a functional option for the Session.
type Option func(*Session)

// WithHostname sets the provider for the hostname recorded in the control
// file.
func WithHostname(p Provider) Option {
	return func(s *Session) {
		s.hostname = p
	}
}

// WithUsername sets the provider for the user name recorded in the control
// file.
func WithUsername(p Provider) Option {
	return func(s *Session) {
		s.username = p
	}
}

// WithProcessID sets the process identifier the job name is derived from.
func WithProcessID(pid int) Option {
	return func(s *Session) {
		s.pid = pid
	}
}

// WithQueue sets the queue print jobs are submitted to.
func WithQueue(queue string) Option {
	return func(s *Session) {
		s.queue = queue
	}
}

// WithStatusQueue sets the queue named in the status request. The default is
// empty, leaving the choice of queue to the server.
func WithStatusQueue(queue string) Option {
	return func(s *Session) {
		s.statusQueue = queue
	}
}

// WithLogger sets the logger for protocol diagnostics. Logging never affects
// protocol behavior.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// NewSession creates a Session that exclusively owns t.
func NewSession(t *Transport, opts ...Option) *Session {
	s := &Session{
		transport: t,
		hostname:  OSHostname,
		username:  OSUsername,
		pid:       os.Getpid(),
		queue:     DefaultQueue,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Job returns the identity of the most recently submitted job.
func (s *Session) Job() JobIdentity {
	return s.job
}

// Print submits payload as a single print job.
//
// It sends the receive job command, the control file subcommand, the control
// file, the data file subcommand, the payload and a final zero byte, waiting
// for a zero acknowledgment after each of them except the payload. The first
// failure aborts the job; a non-zero acknowledgment is returned as an
// [*AckError]. The job may be left partially accepted by the server.
func (s *Session) Print(payload []byte) error {
	job, cf := NewJobIdentity(s.hostname, s.username, s.pid)
	s.job = job
	s.log.Debug().Str("job", job.JobName).Str("control_file", string(cf)).Msg("generated control file")

	receiveJob := cmdReceiveJob + s.queue + "\n"
	if err := s.sendAndWaitForAck(StepReceiveJob, []byte(receiveJob)); err != nil {
		return err
	}
	controlSub := subcmdControlFile + strconv.Itoa(cf.Len()) + " c" + job.JobName + "\n"
	if err := s.sendAndWaitForAck(StepControlSubcommand, []byte(controlSub)); err != nil {
		return err
	}
	controlFile := append(cf.Bytes(), 0)
	if err := s.sendAndWaitForAck(StepControlFile, controlFile); err != nil {
		return err
	}
	dataSub := subcmdDataFile + strconv.Itoa(len(payload)) + " d" + job.JobName + "\n"
	if err := s.sendAndWaitForAck(StepDataSubcommand, []byte(dataSub)); err != nil {
		return err
	}
	if len(payload) > 0 {
		s.log.Debug().Stringer("step", StepDataFile).Int("bytes", len(payload)).Msg("sending")
		if err := s.write(StepDataFile, payload); err != nil {
			return err
		}
	}
	return s.sendAndWaitForAck(StepDataFile, []byte{0})
}

// PrintFile reads the file at path and submits its content with [Session.Print].
func (s *Session) PrintFile(path string) error {
	b, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable
	if err != nil {
		return fmt.Errorf("cannot read %q: %w", path, err)
	}
	s.log.Debug().Str("file", path).Int("size", len(b)).Msg("printing")
	return s.Print(b)
}

// PrintFileWithHeader reads the file at path, wraps its content between
// header and the PJL end-of-job trailer (see [Wrap]) and submits the result
// with [Session.Print].
func (s *Session) PrintFileWithHeader(path string, header []byte) error {
	b, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable
	if err != nil {
		return fmt.Errorf("cannot read %q: %w", path, err)
	}
	s.log.Debug().Str("file", path).Int("size", len(b)).Int("header", len(header)).Msg("printing with header")
	return s.Print(Wrap(header, b))
}

// sendAndWaitForAck writes b and reads one acknowledgment byte.
func (s *Session) sendAndWaitForAck(step Step, b []byte) error {
	s.log.Debug().Stringer("step", step).Int("bytes", len(b)).Msg("sending")
	if err := s.write(step, b); err != nil {
		return err
	}
	ack, err := s.transport.ReadExact(1)
	if err != nil {
		return fmt.Errorf("%s: acknowledgment: %w", step, err)
	}
	if ack[0] != 0 {
		s.log.Debug().Stringer("step", step).Uint8("ack", ack[0]).Msg("rejected")
		return &AckError{Step: step, Value: ack[0]}
	}
	s.log.Debug().Stringer("step", step).Msg("acknowledged")
	return nil
}

// write writes b in full or fails with an error wrapping [ErrIO].
func (s *Session) write(step Step, b []byte) error {
	n, err := s.transport.Write(b)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if n != len(b) {
		return fmt.Errorf("%w: %s: short write %d of %d bytes", ErrIO, step, n, len(b))
	}
	return nil
}
