package lpr_test

import (
	"bytes"
	"testing"

	"github.com/juliaogris/lpr/pkg/lpr"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Parallel()
	want := "\x1b%-12345X@PJL JOB\r\n" + "%!PS\n" + "\x1b%-12345X@PJL EOJ\r\n\x1b%-12345X"
	got := lpr.Wrap([]byte("\x1b%-12345X@PJL JOB\r\n"), []byte("%!PS\n"))
	require.Equal(t, want, string(got))
}

func TestWrapLength(t *testing.T) {
	t.Parallel()
	require.Equal(t, 28, lpr.TrailerLen)
	tests := map[string]struct {
		header []byte
		body   []byte
	}{
		"empty":       {},
		"header only": {header: []byte("@PJL ENTER LANGUAGE=PCL\r\n")},
		"body only":   {body: []byte("hello")},
		"binary":      {header: []byte{0, 1, 2}, body: bytes.Repeat([]byte{0xff}, 4096)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := lpr.Wrap(tc.header, tc.body)
			require.Len(t, got, len(tc.header)+len(tc.body)+lpr.TrailerLen)
			require.True(t, bytes.HasPrefix(got, tc.header))
			require.Equal(t, lpr.Trailer(), got[len(got)-lpr.TrailerLen:])
		})
	}
}

func TestWrapDoesNotModifyInput(t *testing.T) {
	t.Parallel()
	header := make([]byte, 3, 64)
	copy(header, "HDR")
	body := []byte("body")
	_ = lpr.Wrap(header, body)
	require.Equal(t, "HDR", string(header))
	require.Equal(t, "HDR", string(header[:cap(header)][:3]))
	require.Equal(t, make([]byte, 61), header[3:cap(header)])
	require.Equal(t, "body", string(body))
}

func TestTrailerIsCopy(t *testing.T) {
	t.Parallel()
	tr := lpr.Trailer()
	tr[0] = 'X'
	require.Equal(t, byte(0x1b), lpr.Trailer()[0])
}
