package lpr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Transport is a connected byte stream to an LPD server. Every blocking read
// is bounded by the read timeout. A Transport is owned by a single
// [Session] and is not safe for concurrent use.
type Transport struct {
	conn    net.Conn
	timeout time.Duration
	log     zerolog.Logger
	closed  bool
}

// TransportOption is a functional option for the Transport.
type TransportOption func(*Transport)

// WithTransportLogger sets the logger used for wire-level diagnostics.
func WithTransportLogger(l zerolog.Logger) TransportOption {
	return func(t *Transport) {
		t.log = l
	}
}

// Dial connects to the LPD server at address. If address has no port,
// [DefaultPort] is used. The connection attempt is bounded by timeout and ctx;
// timeout also bounds every subsequent read. A zero timeout disables read
// deadlines.
func Dial(ctx context.Context, address string, timeout time.Duration, opts ...TransportOption) (*Transport, error) {
	target := withDefaultPort(address)
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrConnect, target, err)
	}
	return NewTransport(conn, timeout, opts...), nil
}

// NewTransport wraps an established connection.
func NewTransport(conn net.Conn, timeout time.Duration, opts ...TransportOption) *Transport {
	t := &Transport{
		conn:    conn,
		timeout: timeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Write writes b in a single call and returns the number of bytes written.
func (t *Transport) Write(b []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	n, err := t.conn.Write(b)
	t.log.Debug().Int("bytes", n).Msg("write")
	if err != nil {
		return n, t.wrapErr("write", err)
	}
	return n, nil
}

// ReadExact reads exactly n bytes. It fails if the stream ends before n bytes
// arrive or if the read timeout elapses.
func (t *Transport) ReadExact(n int) ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}
	if err := t.setReadDeadline(); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(t.conn, buf)
	t.log.Debug().Int("bytes", read).Msg("read")
	if err != nil {
		return buf[:read], t.wrapErr("read", err)
	}
	return buf, nil
}

// ReadToEnd reads until the server closes the stream. If the read timeout
// elapses first, the bytes read so far are returned together with an error
// wrapping [ErrTimeout].
func (t *Transport) ReadToEnd() ([]byte, error) {
	if t.closed {
		return nil, ErrClosed
	}
	var buf bytes.Buffer
	chunk := make([]byte, 512)
	for {
		if err := t.setReadDeadline(); err != nil {
			return buf.Bytes(), err
		}
		n, err := t.conn.Read(chunk)
		buf.Write(chunk[:n])
		if errors.Is(err, io.EOF) {
			t.log.Debug().Int("bytes", buf.Len()).Msg("read to end")
			return buf.Bytes(), nil
		}
		if err != nil {
			return buf.Bytes(), t.wrapErr("read", err)
		}
	}
}

// Close closes the underlying connection. Subsequent calls are no-ops.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("%w: cannot close: %w", ErrIO, err)
	}
	return nil
}

func (t *Transport) setReadDeadline() error {
	if t.timeout <= 0 {
		return nil
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return fmt.Errorf("%w: cannot set read deadline: %w", ErrIO, err)
	}
	return nil
}

// wrapErr classifies a connection error as a timeout or a generic I/O fault.
func (t *Transport) wrapErr(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v: %w", ErrTimeout, op, t.timeout, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

// withDefaultPort appends [DefaultPort] to address unless it already carries
// a port.
func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.Trim(address, "[]"), DefaultPort)
}
