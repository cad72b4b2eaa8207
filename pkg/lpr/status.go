package lpr

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Status requests the short queue state and returns the server's answer up
// to the first blank line.
//
// The request names the status queue (see [WithStatusQueue]), which is empty
// by default. The response is read until the server closes the connection or
// the read timeout elapses. Status always closes the Transport, so the
// Session cannot be used afterwards.
func (s *Session) Status() (string, error) {
	defer func() {
		if err := s.transport.Close(); err != nil {
			s.log.Debug().Err(err).Msg("cannot close transport")
		}
	}()
	frame := []byte(cmdQueueState + s.statusQueue + "\n")
	s.log.Debug().Str("queue", s.statusQueue).Msg("requesting status")
	n, err := s.transport.Write(frame)
	if err != nil {
		return "", fmt.Errorf("status request: %w", err)
	}
	if n != len(frame) {
		return "", fmt.Errorf("%w: wrote %d of %d bytes", ErrIncompleteWrite, n, len(frame))
	}
	b, err := s.transport.ReadToEnd()
	if err != nil && !(errors.Is(err, ErrTimeout) && len(b) > 0) {
		return "", fmt.Errorf("status response: %w", err)
	}
	return ParseStatus(b), nil
}

// ParseStatus decodes a status response, replacing invalid UTF-8 with
// U+FFFD, and returns the text before the first blank line.
func ParseStatus(b []byte) string {
	// The UTF-8 decoder replaces invalid bytes and never fails.
	decoded, _ := unicode.UTF8.NewDecoder().Bytes(b)
	text, _, _ := strings.Cut(string(decoded), "\n\n")
	return text
}
