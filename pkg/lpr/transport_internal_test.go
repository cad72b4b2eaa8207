package lpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithDefaultPort(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"printer.local":      "printer.local:515",
		"printer.local:1515": "printer.local:1515",
		"10.0.0.7":           "10.0.0.7:515",
		"10.0.0.7:515":       "10.0.0.7:515",
		"::1":                "[::1]:515",
		"[::1]":              "[::1]:515",
		"[::1]:9515":         "[::1]:9515",
	}
	for address, want := range tests {
		t.Run(address, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, want, withDefaultPort(address))
		})
	}
}
