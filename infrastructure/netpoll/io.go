package netpoll

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"chat-relay/errors"

	"golang.org/x/sys/unix"
)

// Read performs one non-blocking read.
// A closed peer yields io.EOF, an empty socket ErrWouldBlock.
func Read(conn syscall.Conn, buf []byte) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n     int
		opErr error
	)
	err = raw.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	switch {
	case isWouldBlock(opErr):
		return 0, errors.ErrWouldBlock
	case opErr != nil:
		return 0, opErr
	case n == 0 && len(buf) > 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write performs one non-blocking write and may write only part of p.
func Write(conn syscall.Conn, p []byte) (int, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n     int
		opErr error
	)
	err = raw.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), p)
		return true
	})
	if err != nil {
		return 0, err
	}
	if isWouldBlock(opErr) {
		return 0, errors.ErrWouldBlock
	}
	if opErr != nil {
		return 0, opErr
	}
	return n, nil
}

// Accept takes one pending connection off a listening socket
// without blocking. It returns ErrWouldBlock when the backlog is empty.
func Accept(listener syscall.Conn) (net.Conn, error) {
	raw, err := listener.SyscallConn()
	if err != nil {
		return nil, err
	}
	var (
		nfd   int
		opErr error
	)
	// A listener's RawConn only supports Control; its descriptor is already non-blocking.
	err = raw.Control(func(fd uintptr) {
		nfd, _, opErr = unix.Accept(int(fd))
	})
	if err != nil {
		return nil, err
	}
	if isWouldBlock(opErr) || opErr == unix.ECONNABORTED {
		return nil, errors.ErrWouldBlock
	}
	if opErr != nil {
		return nil, fmt.Errorf("accept: %w", opErr)
	}
	unix.CloseOnExec(nfd)

	f := os.NewFile(uintptr(nfd), "accepted")
	defer f.Close()
	// FileConn duplicates the descriptor and hands it to the runtime.
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

func descriptor(conn syscall.Conn) (int, error) {
	if conn == nil {
		return 0, errors.ErrNotSyscallConn
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	fd := -1
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return 0, err
	}
	return fd, nil
}

// SyscallConn exposes the descriptor behind a net.Conn.
func SyscallConn(conn net.Conn) (syscall.Conn, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, errors.ErrNotSyscallConn
	}
	return sc, nil
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}
