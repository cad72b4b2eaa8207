package lpr

// trailer is a PJL universal exit, an end-of-job directive and a second
// universal exit.
const trailer = "\x1b%-12345X@PJL EOJ\r\n\x1b%-12345X"

// TrailerLen is the length of the envelope trailer in bytes.
const TrailerLen = len(trailer)

// Trailer returns a copy of the envelope trailer.
func Trailer() []byte {
	return []byte(trailer)
}

// Wrap returns header, followed by body, followed by the PJL end-of-job
// trailer. Neither header nor body is modified.
func Wrap(header, body []byte) []byte {
	buf := make([]byte, 0, len(header)+len(body)+TrailerLen)
	buf = append(buf, header...)
	buf = append(buf, body...)
	buf = append(buf, trailer...)
	return buf
}
