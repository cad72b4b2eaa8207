package lpd

import (
	"errors"
	"time"
)

// Sentinel Errors returned by the lpd package.
var (
	ErrMalformed = errors.New("malformed command")
	ErrRejected  = errors.New("rejected")
	ErrSpool     = errors.New("spool error")
	ErrShutdown  = errors.New("already shut down")
)

// Job is a print job received by the [Server].
type Job struct {
	ID          string
	Queue       string
	ControlName string
	ControlFile []byte
	DataName    string
	Data        []byte
	Received    time.Time
}
