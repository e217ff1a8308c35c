package runtime

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"chat-relay/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

// tcpPair returns the server side and the client side of a loopback connection.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	req := require.New(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
		close(accepted)
	}()
	client, err := net.Dial("tcp", ln.Addr().String())
	req.NoError(err)
	server, ok := <-accepted
	req.True(ok)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return server, client
}

// peer is a test client speaking the line protocol.
type peer struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialPeer(t *testing.T, addr string) *peer {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &peer{t: t, conn: conn, reader: newReader(conn)}
}

func newReader(conn net.Conn) *bufio.Reader { return bufio.NewReader(conn) }

func (p *peer) send(lines ...string) {
	p.t.Helper()
	_, err := p.conn.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(p.t, err)
}

func (p *peer) expect(want string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	line, err := p.reader.ReadString('\n')
	require.NoError(p.t, err, "waiting for %q", want)
	require.Equal(p.t, want, strings.TrimSuffix(line, "\n"))
}

func (p *peer) expectSilence(within time.Duration) {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(within)))
	line, err := p.reader.ReadString('\n')
	require.Error(p.t, err, "unexpected line %q", line)
	var netErr net.Error
	require.ErrorAs(p.t, err, &netErr)
	require.True(p.t, netErr.Timeout())
}
