// Package lpr provides a client for the Line Printer Daemon protocol
// (RFC 1179).
//
// It submits single print jobs to a printer or print spooler and queries
// queue status over TCP port 515.
//
// ## Transport
//
// The [Transport] created with [Dial] or [NewTransport] is a connected byte
// stream whose blocking reads are bounded by a read timeout. Timeouts are
// reported as [ErrTimeout], other connection faults as [ErrIO].
//
// ## Session
//
// The [Session] created with [NewSession] drives a job submission step by
// step: receive job command, control file subcommand, control file, data
// file subcommand, payload and end-of-transfer byte. Each step waits for a
// single acknowledgment byte. A non-zero acknowledgment aborts the job with
// an [*AckError]. Nothing is retried; callers that need resilience reconnect
// and resubmit the whole job.
//
// The control file and job name are derived from the local hostname, user
// name and process identifier, see [GenerateControlFile]. Hostname and user
// name are obtained through [Provider] functions that can be replaced with
// [WithHostname] and [WithUsername].
//
// ## Envelope
//
// [Wrap] surrounds a payload with a caller-supplied header and a fixed PJL
// end-of-job trailer. [Session.PrintFileWithHeader] uses it; plain
// [Session.Print] never does.
//
// # Example Usage
//
//	t, err := lpr.Dial(ctx, "printer.local", 5*time.Second)
//	if err != nil {
//		// handle error
//	}
//	defer t.Close()
//	session := lpr.NewSession(t)
//	if err := session.PrintFile("report.ps"); err != nil {
//		// handle error
//	}
package lpr
