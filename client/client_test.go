package client

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"testing"
	"time"

	relayerrors "chat-relay/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	listener net.Listener
	conns    chan net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{listener: listener, conns: make(chan net.Conn, 1)}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		s.conns <- conn
	}()
	t.Cleanup(func() { _ = listener.Close() })
	return s
}

func (s *fakeServer) accept(t *testing.T) (net.Conn, *bufio.Reader) {
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn, bufio.NewReader(conn)
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil, nil
	}
}

func readLine(t *testing.T, conn net.Conn, r *bufio.Reader) string {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func testConfig(addr string) Config {
	return Config{ServerAddress: addr, IdleTimeout: 5 * time.Second, DialTimeout: time.Second}
}

// idleInput never yields a line until the test ends.
func idleInput(t *testing.T) io.Reader {
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	return r
}

type result struct {
	code int
	err  error
}

func runAsync(c *Client) chan result {
	done := make(chan result, 1)
	go func() {
		code, err := c.Run(context.Background())
		done <- result{code: code, err: err}
	}()
	return done
}

func TestClient_PrintsBroadcastsUntilServerDisconnects(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := newFakeServer(t)
	out := &bytes.Buffer{}

	// Given a client named Alice
	done := runAsync(New(log, testConfig(server.listener.Addr().String()), "Alice", idleInput(t), out))
	conn, r := server.accept(t)

	// Then the first frame names the session
	req.Equal("/user Alice", readLine(t, conn, r))

	// When the server broadcasts and then closes the socket
	_, err := conn.Write([]byte("Bob has joined the room.\nBob: hi\n"))
	req.NoError(err)
	req.NoError(conn.Close())

	// Then the lines are printed and the client exits with status 1
	res := <-done
	req.Equal(ExitFailure, res.code)
	req.ErrorIs(res.err, relayerrors.ErrServerDisconnected)
	req.Equal("Bob has joined the room.\nBob: hi\nServer disconnected\n", out.String())
}

func TestClient_TimesOutOnSilentServer(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := newFakeServer(t)
	out := &bytes.Buffer{}
	cfg := testConfig(server.listener.Addr().String())
	cfg.IdleTimeout = 150 * time.Millisecond

	// Given a server that accepts but never speaks
	start := time.Now()
	done := runAsync(New(log, cfg, "Alice", idleInput(t), out))
	server.accept(t)

	// Then the client gives up after its idle timeout
	res := <-done
	req.Equal(ExitFailure, res.code)
	req.ErrorIs(res.err, relayerrors.ErrTimedOut)
	req.Equal("Timed out\n", out.String())
	req.GreaterOrEqual(time.Since(start), cfg.IdleTimeout)
}

func TestClient_QuitCommandExitsCleanly(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := newFakeServer(t)

	// Given a user typing one message then /quit
	in := strings.NewReader("hello\n/quit\nnever sent\n")
	done := runAsync(New(log, testConfig(server.listener.Addr().String()), "Alice", in, io.Discard))
	conn, r := server.accept(t)

	// Then the frames reach the server in order and nothing after /quit
	req.Equal("/user Alice", readLine(t, conn, r))
	req.Equal("hello", readLine(t, conn, r))
	req.Equal("/quit", readLine(t, conn, r))

	res := <-done
	req.Equal(ExitOK, res.code)
	req.NoError(res.err)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, err := r.ReadString('\n')
	req.ErrorIs(err, io.EOF)
}

func TestClient_EndOfInputActsAsQuit(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := newFakeServer(t)

	// Given an empty input stream
	done := runAsync(New(log, testConfig(server.listener.Addr().String()), "Alice", strings.NewReader(""), io.Discard))
	conn, r := server.accept(t)

	// Then the client names itself, quits and exits with status 0
	req.Equal("/user Alice", readLine(t, conn, r))
	req.Equal("/quit", readLine(t, conn, r))
	res := <-done
	req.Equal(ExitOK, res.code)
	req.NoError(res.err)
}

func TestClient_ColoursOnlySystemNotices(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	server := newFakeServer(t)
	out := &bytes.Buffer{}
	cfg := testConfig(server.listener.Addr().String())
	cfg.Colours = true

	done := runAsync(New(log, cfg, "Alice", idleInput(t), out))
	conn, r := server.accept(t)
	readLine(t, conn, r)

	_, err := conn.Write([]byte("Bob has left the room.\nCarol: bye\n"))
	req.NoError(err)
	req.NoError(conn.Close())

	<-done
	req.Contains(out.String(), "Bob has left the room.")
	req.Contains(out.String(), "\nCarol: bye\n")
}

func TestClient_ConnectionRefusedReportsErrno(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given an address nobody listens on
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	addr := listener.Addr().String()
	req.NoError(listener.Close())

	// When the client dials it
	code, err := New(log, testConfig(addr), "Alice", strings.NewReader(""), io.Discard).Run(context.Background())

	// Then the exit status is the OS error code
	req.Error(err)
	req.ErrorIs(err, syscall.ECONNREFUSED)
	req.Equal(int(syscall.ECONNREFUSED), code)
}
