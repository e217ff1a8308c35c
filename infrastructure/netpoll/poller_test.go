package netpoll

import (
	"context"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

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

func TestPoller_TimeoutIsDistinct(t *testing.T) {
	req := require.New(t)
	server, _ := tcpPair(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()

	// Given a registered socket with nothing to read
	_, err = p.Register(server.(syscall.Conn), ReadInterest)
	req.NoError(err)

	// When waiting with a short timeout
	ready, err := p.Wait(context.Background(), 20*time.Millisecond)

	// Then the timeout is reported as such
	req.ErrorIs(err, errors.ErrPollTimeout)
	req.Empty(ready)
}

func TestPoller_ReadableThenWouldBlock(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()
	src, err := p.Register(server.(syscall.Conn), ReadInterest)
	req.NoError(err)

	// Given the peer wrote a line
	_, err = client.Write([]byte("hello\n"))
	req.NoError(err)

	// When waiting for readiness
	ready, err := p.Wait(context.Background(), time.Second)
	req.NoError(err)
	req.Len(ready, 1)
	req.Same(src, ready[0].Source)
	req.True(ready[0].Readable)

	// Then the data is read once and the next read would block
	buf := make([]byte, 64)
	n, err := Read(server.(syscall.Conn), buf)
	req.NoError(err)
	req.Equal("hello\n", string(buf[:n]))
	_, err = Read(server.(syscall.Conn), buf)
	req.ErrorIs(err, errors.ErrWouldBlock)
}

func TestPoller_WritableAndWrite(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()
	_, err = p.Register(server.(syscall.Conn), BothInterest)
	req.NoError(err)

	ready, err := p.Wait(context.Background(), time.Second)
	req.NoError(err)
	req.Len(ready, 1)
	req.True(ready[0].Writable)

	n, err := Write(server.(syscall.Conn), []byte("hi\n"))
	req.NoError(err)
	req.Equal(3, n)

	buf := make([]byte, 3)
	_, err = io.ReadFull(client, buf)
	req.NoError(err)
	req.Equal("hi\n", string(buf))
}

func TestPoller_PeerCloseReadsEOF(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()
	_, err = p.Register(server.(syscall.Conn), ReadInterest)
	req.NoError(err)

	req.NoError(client.Close())

	ready, err := p.Wait(context.Background(), time.Second)
	req.NoError(err)
	req.Len(ready, 1)
	req.True(ready[0].Readable)
	_, err = Read(server.(syscall.Conn), make([]byte, 8))
	req.ErrorIs(err, io.EOF)
}

func TestPoller_WakeInterruptsInfiniteWait(t *testing.T) {
	req := require.New(t)
	server, _ := tcpPair(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()
	_, err = p.Register(server.(syscall.Conn), ReadInterest)
	req.NoError(err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Wake()
	}()

	ready, err := p.Wait(context.Background(), -1)
	req.NoError(err)
	req.Empty(ready)
}

func TestPoller_ContextCancelInterruptsWait(t *testing.T) {
	req := require.New(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err = p.Wait(ctx, -1)
	req.ErrorIs(err, context.Canceled)
}

func TestPoller_Deregister(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()
	src, err := p.Register(server.(syscall.Conn), ReadInterest)
	req.NoError(err)
	p.Deregister(src)

	_, err = client.Write([]byte("ignored\n"))
	req.NoError(err)

	_, err = p.Wait(context.Background(), 30*time.Millisecond)
	req.ErrorIs(err, errors.ErrPollTimeout)
}

func TestPoller_ClosedPoller(t *testing.T) {
	req := require.New(t)
	p, err := NewPoller()
	req.NoError(err)
	req.NoError(p.Close())
	req.NoError(p.Close())
	p.Wake()

	_, err = p.Wait(context.Background(), time.Millisecond)
	req.ErrorIs(err, errors.ErrPollerClosed)
}

func TestAccept_DrainsBacklog(t *testing.T) {
	req := require.New(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer ln.Close()
	lc := ln.(*net.TCPListener)

	// Given an empty backlog
	_, err = Accept(lc)
	req.ErrorIs(err, errors.ErrWouldBlock)

	// When two clients connect
	p, err := NewPoller()
	req.NoError(err)
	defer p.Close()
	_, err = p.Register(lc, ReadInterest)
	req.NoError(err)
	for i := 0; i < 2; i++ {
		c, err := net.Dial("tcp", ln.Addr().String())
		req.NoError(err)
		defer c.Close()
	}

	// Then both are accepted after a single wake
	_, err = p.Wait(context.Background(), time.Second)
	req.NoError(err)
	var accepted []net.Conn
	req.Eventually(func() bool {
		for {
			c, err := Accept(lc)
			if err != nil {
				return len(accepted) == 2
			}
			accepted = append(accepted, c)
		}
	}, time.Second, 10*time.Millisecond)
	for _, c := range accepted {
		_, ok := c.(syscall.Conn)
		req.True(ok)
		_ = c.Close()
	}
}

func TestSyscallConn_RejectsPipes(t *testing.T) {
	req := require.New(t)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	_, err := SyscallConn(a)

	req.ErrorIs(err, errors.ErrNotSyscallConn)
}
