package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"chat-relay/infrastructure/netpoll"

	"github.com/gookit/color"
)

// Exit codes reported to the shell.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Client is the interactive side of the chat protocol.
// Lines typed on in are sent as frames, broadcast lines are printed on out.
type Client struct {
	log  *slog.Logger
	cfg  Config
	name string
	in   io.Reader
	out  io.Writer
}

func New(log *slog.Logger, cfg Config, name string, in io.Reader, out io.Writer) *Client {
	return &Client{log: log, cfg: cfg, name: name, in: in, out: out}
}

// Run connects, names the session and relays until the user quits,
// the server goes away or stays silent past the idle timeout.
// The returned code is the process exit status.
func (c *Client) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.ServerAddress)
	if err != nil {
		return connectExitCode(err), fmt.Errorf("could not connect to %s: %w", c.cfg.ServerAddress, err)
	}
	defer conn.Close()
	c.log.Debug("Connected", "address", c.cfg.ServerAddress, "name", c.name)

	sc, err := netpoll.SyscallConn(conn)
	if err != nil {
		return ExitFailure, err
	}
	poller, err := netpoll.NewPoller()
	if err != nil {
		return ExitFailure, err
	}
	defer poller.Close()
	src, err := poller.Register(sc, netpoll.ReadInterest)
	if err != nil {
		return ExitFailure, err
	}

	lines := make(chan string, 16)
	go c.readInput(ctx, lines, poller.Wake)

	var input <-chan string = lines
	var (
		pending      = []byte(domain.UserFrame(c.name) + "\n")
		quitting     = false
		scanner      = domain.NewFrameScanner(domain.DefaultFrameSize)
		buf          = make([]byte, 4096)
		lastActivity = time.Now()
	)
	for {
		input, pending, quitting = c.drainInput(input, pending, quitting)
		if quitting && len(pending) == 0 {
			c.log.Debug("Quit requested")
			return ExitOK, nil
		}

		interest := netpoll.ReadInterest
		if len(pending) > 0 {
			interest = netpoll.BothInterest
		}
		poller.SetInterest(src, interest)

		timeout := time.Duration(-1)
		if c.cfg.IdleTimeout > 0 {
			timeout = c.cfg.IdleTimeout - time.Since(lastActivity)
			if timeout <= 0 {
				return c.timedOut()
			}
		}

		ready, err := poller.Wait(ctx, timeout)
		switch {
		case err == relayerrors.ErrPollTimeout:
			return c.timedOut()
		case err != nil && ctx.Err() != nil:
			return ExitOK, nil
		case err != nil:
			return ExitFailure, err
		}

		for _, r := range ready {
			if r.Readable {
				n, err := c.receive(sc, scanner, buf)
				if n > 0 {
					lastActivity = time.Now()
				}
				if errors.Is(err, io.EOF) {
					if frame, ok := scanner.Flush(); ok {
						c.print(string(frame))
					}
					fmt.Fprintln(c.out, "Server disconnected")
					return ExitFailure, relayerrors.ErrServerDisconnected
				}
				if err != nil {
					return ExitFailure, err
				}
			}
			if r.Writable && len(pending) > 0 {
				n, err := netpoll.Write(sc, pending)
				if err != nil && err != relayerrors.ErrWouldBlock {
					return ExitFailure, err
				}
				pending = pending[n:]
			}
		}
	}
}

// drainInput moves every typed line into the outgoing buffer.
// End of input counts as a quit.
func (c *Client) drainInput(input <-chan string, pending []byte, quitting bool) (<-chan string, []byte, bool) {
	for input != nil && !quitting {
		select {
		case line, ok := <-input:
			if !ok {
				line = domain.QuitCommand
			}
			pending = append(pending, line...)
			pending = append(pending, '\n')
			if domain.ParseCommand(strings.TrimSpace(line)).Kind == domain.Quit {
				quitting = true
			}
		default:
			return input, pending, quitting
		}
	}
	return input, pending, quitting
}

func (c *Client) receive(conn syscall.Conn, scanner *domain.FrameScanner, buf []byte) (int, error) {
	total := 0
	for {
		n, err := netpoll.Read(conn, buf)
		if err == relayerrors.ErrWouldBlock {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		total += n
		for _, frame := range scanner.Feed(buf[:n]) {
			c.print(string(frame))
		}
	}
}

func (c *Client) print(line string) {
	if c.cfg.Colours && domain.IsSystemNotice(line) {
		line = color.New(color.FgCyan).Render(line)
	}
	fmt.Fprintln(c.out, line)
}

func (c *Client) timedOut() (int, error) {
	fmt.Fprintln(c.out, "Timed out")
	return ExitFailure, relayerrors.ErrTimedOut
}

func (c *Client) readInput(ctx context.Context, lines chan<- string, wake func()) {
	defer wake()
	defer close(lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
			wake()
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Debug("Input closed", "error", err)
	}
}

// connectExitCode surfaces the OS error behind a failed dial.
func connectExitCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return ExitFailure
}
