package lpr

import (
	"os"
	"os/user"
	"strconv"
	"strings"
)

// ControlFile is the text of an LPD control file. It is generated once per
// job and never modified.
type ControlFile string

// Len returns the length of the control file in bytes, as announced in the
// receive control file subcommand.
func (c ControlFile) Len() int {
	return len(c)
}

// Bytes returns the control file text as bytes.
func (c ControlFile) Bytes() []byte {
	return []byte(c)
}

// GenerateControlFile builds the control file and the job name for a job
// submitted by user from host. The job name is "fA", followed by pid modulo
// 1000, followed by host. It names both the control file ("c" prefix) and the
// data file ("d" prefix) on the server.
//
// The control file consists of exactly three newline-terminated lines:
//
//	H<host>
//	P<user>
//	ld<jobName>
func GenerateControlFile(host, user string, pid int) (ControlFile, string) {
	seq := pid % 1000
	if seq < 0 {
		seq = -seq
	}
	jobName := "fA" + strconv.Itoa(seq) + host
	var sb strings.Builder
	sb.WriteString("H" + host + "\n")
	sb.WriteString("P" + user + "\n")
	sb.WriteString("ld" + jobName + "\n")
	return ControlFile(sb.String()), jobName
}

// NewJobIdentity resolves host and user with the given providers and derives
// the job name from pid. Failing or empty providers fall back to
// [FallbackHost] and [FallbackUser].
func NewJobIdentity(hostname, username Provider, pid int) (JobIdentity, ControlFile) {
	host := resolve(hostname, FallbackHost)
	usr := resolve(username, FallbackUser)
	cf, jobName := GenerateControlFile(host, usr, pid)
	return JobIdentity{Host: host, User: usr, JobName: jobName}, cf
}

// OSHostname returns the local hostname.
func OSHostname() (string, error) {
	return os.Hostname()
}

// OSUsername returns the name of the current user.
func OSUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func resolve(p Provider, fallback string) string {
	if p == nil {
		return fallback
	}
	v, err := p()
	if err != nil || v == "" {
		return fallback
	}
	return v
}
