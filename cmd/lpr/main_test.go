package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/juliaogris/lpr/pkg/lpd"
	"github.com/juliaogris/lpr/pkg/lpr"
	"github.com/stretchr/testify/require"
)

func TestMainPrint(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Stop()
	file := writeFile(t, "doc.txt", "hello")

	out, err := run(t, []string{"print", ts.address, file})
	require.NoError(t, err)
	require.Equal(t, "", out)

	jobs := ts.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, "lp", jobs[0].Queue)
	require.Equal(t, "hello", string(jobs[0].Data))
	require.True(t, strings.HasPrefix(jobs[0].DataName, "dfA"), jobs[0].DataName)
	require.Equal(t, "c"+jobs[0].DataName[1:], jobs[0].ControlName)
}

func TestMainPrintWithHeader(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Stop()
	file := writeFile(t, "doc.pcl", "document")
	header := writeFile(t, "header.bin", "\x1b%-12345X@PJL ENTER LANGUAGE=PCL\r\n")

	_, err := run(t, []string{"print", "--header", header, ts.address, file})
	require.NoError(t, err)

	jobs := ts.Jobs()
	require.Len(t, jobs, 1)
	want := lpr.Wrap([]byte("\x1b%-12345X@PJL ENTER LANGUAGE=PCL\r\n"), []byte("document"))
	require.Equal(t, want, jobs[0].Data)
}

func TestMainPrintRejected(t *testing.T) {
	ts := newTestServer(t, lpd.WithAck(lpr.StepReceiveJob, 1))
	defer ts.Stop()
	file := writeFile(t, "doc.txt", "hello")

	_, err := run(t, []string{"print", ts.address, file})
	require.ErrorIs(t, err, lpr.ErrProtocolAck)
	require.Empty(t, ts.Jobs())
}

func TestMainStatus(t *testing.T) {
	ts := newTestServer(t, lpd.WithStatusText("lp is ready and printing\n\nno entries\n"))
	defer ts.Stop()

	out, err := run(t, []string{"status", ts.address})
	require.NoError(t, err)
	require.Equal(t, "lp is ready and printing\n", out)
}

func TestMainConfig(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Stop()
	file := writeFile(t, "doc.txt", "hello")
	config := writeFile(t, "config.toml", "queue = \"raw\"\ntimeout = \"2s\"\n")

	_, err := run(t, []string{"print", "--config", config, ts.address, file})
	require.NoError(t, err)
	jobs := ts.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, "raw", jobs[0].Queue)
}

func TestMainEnv(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Stop()
	file := writeFile(t, "doc.txt", "hello")
	t.Setenv("LPR_QUEUE", "text")

	_, err := run(t, []string{"print", ts.address, file})
	require.NoError(t, err)
	jobs := ts.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, "text", jobs[0].Queue)
}

func TestMainConnectError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := lis.Addr().String()
	require.NoError(t, lis.Close())

	_, err = run(t, []string{"status", address})
	require.ErrorIs(t, err, lpr.ErrConnect)
}

func TestTOMLLoader(t *testing.T) {
	t.Parallel()
	resolver, err := tomlLoader(strings.NewReader("status_queue = \"lp\"\nverbose = true\n"))
	require.NoError(t, err)

	v, err := resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "status-queue"}})
	require.NoError(t, err)
	require.Equal(t, "lp", v)
	v, err = resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "verbose"}})
	require.NoError(t, err)
	require.Equal(t, true, v)
	v, err = resolver.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "timeout"}})
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = tomlLoader(strings.NewReader("queue = "))
	require.Error(t, err)
}

func run(t *testing.T, args []string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	var w io.Writer = buf
	opts := append(options(&w), kong.Exit(exitFatalFn(t)))
	parser, err := kong.New(&app{}, opts...)
	if err != nil {
		return "", fmt.Errorf("kong.New: %w", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", fmt.Errorf("kong.Parser.Parse: %w", err)
	}
	err = kctx.Run()
	if err != nil {
		return "", fmt.Errorf("kong.Context.Run: %w", err)
	}
	return buf.String(), nil
}

func exitFatalFn(t *testing.T) func(c int) {
	t.Helper()
	return func(_ int) {
		t.Helper()
		t.Fatalf("unexpected exit by arg parser")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type testServer struct {
	*lpd.Server
	address string
}

func newTestServer(t *testing.T, opts ...lpd.Option) *testServer {
	t.Helper()
	server := lpd.NewServer(opts...)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		if err := server.Serve(lis); err != nil {
			t.Errorf("cannot start test server %v", err)
		}
	}()
	return &testServer{Server: server, address: lis.Addr().String()}
}
