// Package lpd provides a minimal Line Printer Daemon receiver.
//
// It accepts receive job commands with their control and data file
// subcommands, and answers short queue state requests with a fixed text. It
// is meant for testing LPD clients: acknowledgments can be scripted per step
// with [WithAck], and every byte received on a connection is recorded.
//
// ## Concurrency:
// Each connection is handled in its own goroutine. Jobs and Transcripts
// return copies that are safe to use concurrently with the server.
package lpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juliaogris/lpr/pkg/lpr"
	"github.com/rs/zerolog"
)

// DefaultMaxFileSize is the largest control or data file accepted by default.
const DefaultMaxFileSize = 64 << 20

// Server receives print jobs over the LPD protocol.
type Server struct {
	mutex       sync.Mutex
	wg          sync.WaitGroup
	listeners   []net.Listener
	conns       map[net.Conn]bool
	jobs        []Job
	transcripts [][]byte
	maxID       atomic.Uint64
	shutDown    bool

	acks        map[lpr.Step]byte
	statusText  string
	spoolDir    string
	maxFileSize int
	log         zerolog.Logger
}

// Option is a functional option for the Server.
type Option func(*Server)

// WithAck makes the server answer step with value instead of zero.
func WithAck(step lpr.Step, value byte) Option {
	return func(s *Server) {
		s.acks[step] = value
	}
}

// WithStatusText sets the response to queue state requests.
func WithStatusText(text string) Option {
	return func(s *Server) {
		s.statusText = text
	}
}

// WithSpoolDir makes the server write the control and data file of every
// received job into dir.
func WithSpoolDir(dir string) Option {
	return func(s *Server) {
		s.spoolDir = dir
	}
}

// WithMaxFileSize sets the largest control or data file the server accepts.
// Larger announcements are rejected with a non-zero acknowledgment.
func WithMaxFileSize(n int) Option {
	return func(s *Server) {
		s.maxFileSize = n
	}
}

// WithLogger sets the logger for received jobs and connection errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer creates a new Server with the given options.
func NewServer(opts ...Option) *Server {
	s := &Server{
		conns:       make(map[net.Conn]bool),
		acks:        make(map[lpr.Step]byte),
		statusText:  "no entries\n\n",
		maxFileSize: DefaultMaxFileSize,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve accepts connections on lis until the server is stopped. It returns
// nil after [Server.Stop].
func (s *Server) Serve(lis net.Listener) error {
	s.mutex.Lock()
	if s.shutDown {
		s.mutex.Unlock()
		return ErrShutdown
	}
	s.listeners = append(s.listeners, lis)
	s.mutex.Unlock()
	for {
		conn, err := lis.Accept()
		if err != nil {
			if s.isShutDown() {
				return nil
			}
			return fmt.Errorf("cannot accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Stop closes all listeners and open connections and waits for connection
// handlers to finish.
func (s *Server) Stop() {
	s.mutex.Lock()
	if s.shutDown {
		s.mutex.Unlock()
		return
	}
	s.shutDown = true
	for _, lis := range s.listeners {
		if err := lis.Close(); err != nil {
			s.log.Error().Err(err).Msg("cannot close listener")
		}
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mutex.Unlock()
	s.wg.Wait()
}

// StopOnSignals stops the server when one of the given signals is received.
// If no signals are provided, this function does nothing.
func (s *Server) StopOnSignals(sig ...os.Signal) {
	if len(sig) == 0 {
		return
	}
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, sig...)
		<-ch
		s.log.Info().Msg("stopping server")
		s.Stop()
	}()
}

// Jobs returns a copy of all completely received jobs.
func (s *Server) Jobs() []Job {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	return jobs
}

// Transcripts returns the bytes received on each closed connection, in
// the order the connections were closed.
func (s *Server) Transcripts() [][]byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([][]byte, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

func (s *Server) track(conn net.Conn) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.shutDown {
		return false
	}
	s.conns[conn] = true
	return true
}

func (s *Server) isShutDown() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.shutDown
}

// handle serves a single connection and records its transcript.
func (s *Server) handle(conn net.Conn) {
	rec := &transcript{}
	defer func() {
		_ = conn.Close()
		s.mutex.Lock()
		delete(s.conns, conn)
		s.transcripts = append(s.transcripts, rec.bytes())
		s.mutex.Unlock()
	}()
	r := bufio.NewReader(io.TeeReader(conn, rec))
	err := s.serveConn(conn, r)
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.Is(err, ErrRejected):
		s.log.Info().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("job rejected")
	default:
		s.log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection error")
	}
}

func (s *Server) serveConn(conn net.Conn, r *bufio.Reader) error {
	cmd, err := r.ReadByte()
	if err != nil {
		return err
	}
	operand, err := readLine(r)
	if err != nil {
		return err
	}
	switch cmd {
	case 0x02:
		return s.receiveJob(conn, r, operand)
	case 0x03, 0x04:
		if _, err := io.WriteString(conn, s.statusText); err != nil {
			return fmt.Errorf("cannot write status: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported command 0x%02x", ErrMalformed, cmd)
	}
}

// receiveJob handles the subcommands of a receive job command. Control and
// data file may arrive in either order; the job is recorded once both are
// complete and accepted, before the final acknowledgment is sent.
func (s *Server) receiveJob(conn net.Conn, r *bufio.Reader, queue string) error {
	if err := s.ack(conn, lpr.StepReceiveJob); err != nil {
		return err
	}
	job := Job{Queue: queue}
	var haveControl, haveData bool
	for {
		sub, err := r.ReadByte()
		if err != nil {
			return err
		}
		operand, err := readLine(r)
		if err != nil {
			return err
		}
		switch sub {
		case 0x01:
			s.log.Info().Str("queue", queue).Msg("job aborted by client")
			job, haveControl, haveData = Job{Queue: queue}, false, false
			continue
		case 0x02:
			job.ControlName, job.ControlFile, err = s.receiveFile(conn, r, operand, lpr.StepControlSubcommand)
			if err != nil {
				return err
			}
			haveControl = true
			if haveData && s.accepts(lpr.StepControlFile) {
				s.addJob(job)
			}
			err = s.ack(conn, lpr.StepControlFile)
		case 0x03:
			job.DataName, job.Data, err = s.receiveFile(conn, r, operand, lpr.StepDataSubcommand)
			if err != nil {
				return err
			}
			haveData = true
			if haveControl && s.accepts(lpr.StepDataFile) {
				s.addJob(job)
			}
			err = s.ack(conn, lpr.StepDataFile)
		default:
			return fmt.Errorf("%w: unsupported subcommand 0x%02x", ErrMalformed, sub)
		}
		if err != nil {
			return err
		}
	}
}

// receiveFile parses a "<count> <name>" subcommand operand, acknowledges it
// and reads count bytes followed by a zero byte.
func (s *Server) receiveFile(conn net.Conn, r *bufio.Reader, operand string, step lpr.Step) (string, []byte, error) {
	countStr, name, ok := strings.Cut(operand, " ")
	count, err := strconv.Atoi(countStr)
	if !ok || err != nil || count < 0 {
		return "", nil, fmt.Errorf("%w: %s %q", ErrMalformed, step, operand)
	}
	if count > s.maxFileSize {
		_, _ = conn.Write([]byte{1})
		return "", nil, fmt.Errorf("%w: %s: %d bytes exceed limit %d", ErrRejected, step, count, s.maxFileSize)
	}
	if err := s.ack(conn, step); err != nil {
		return "", nil, err
	}
	b := make([]byte, count+1)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", nil, fmt.Errorf("cannot read %q: %w", name, err)
	}
	if b[count] != 0 {
		return "", nil, fmt.Errorf("%w: %q not terminated by zero byte", ErrMalformed, name)
	}
	return name, b[:count], nil
}

// accepts reports whether step is acknowledged with zero.
func (s *Server) accepts(step lpr.Step) bool {
	return s.acks[step] == 0
}

// ack sends the acknowledgment configured for step. A non-zero value ends
// the job with an error wrapping [ErrRejected].
func (s *Server) ack(conn net.Conn, step lpr.Step) error {
	v := s.acks[step]
	if _, err := conn.Write([]byte{v}); err != nil {
		return fmt.Errorf("cannot acknowledge %s: %w", step, err)
	}
	if v != 0 {
		return fmt.Errorf("%w: %s with 0x%02x", ErrRejected, step, v)
	}
	return nil
}

func (s *Server) addJob(job Job) {
	job.ID = strconv.FormatUint(s.maxID.Add(1), 10)
	job.Received = time.Now()
	if s.spoolDir != "" {
		if err := s.spool(job); err != nil {
			s.log.Error().Err(err).Str("id", job.ID).Msg("cannot spool job")
		}
	}
	s.mutex.Lock()
	s.jobs = append(s.jobs, job)
	s.mutex.Unlock()
	s.log.Info().Str("id", job.ID).Str("queue", job.Queue).Str("name", job.DataName).Int("bytes", len(job.Data)).Msg("received job")
}

// spool writes the control and data file of job into the spool directory.
// File names are taken from the client's subcommands and stripped of any
// directory components.
func (s *Server) spool(job Job) error {
	files := map[string][]byte{
		job.ControlName: job.ControlFile,
		job.DataName:    job.Data,
	}
	for name, content := range files {
		absFilename := filepath.Join(s.spoolDir, filepath.Base(name))
		if err := os.WriteFile(absFilename, content, 0o600); err != nil {
			return fmt.Errorf("%w: cannot create %q: %w", ErrSpool, absFilename, err)
		}
	}
	return nil
}

// readLine reads up to and excluding the next newline.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return "", fmt.Errorf("%w: unterminated line %q", ErrMalformed, line)
		}
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// transcript records bytes read from a connection.
type transcript struct {
	mutex sync.Mutex
	buf   []byte
}

func (t *transcript) Write(p []byte) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *transcript) bytes() []byte {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return append([]byte(nil), t.buf...)
}
