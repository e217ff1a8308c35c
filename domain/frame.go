package domain

import (
	"bytes"
	"unicode/utf8"
)

const DefaultFrameSize = 1024

// FrameScanner splits a byte stream into newline-delimited frames.
// Reads may end anywhere: bytes are kept until their newline arrives.
// A line longer than the ceiling is cut at the last rune boundary within
// the ceiling and the rest of it is discarded up to the next newline.
type FrameScanner struct {
	max        int
	buf        []byte
	discarding bool
	truncated  int
}

func NewFrameScanner(max int) *FrameScanner {
	if max <= 0 {
		max = DefaultFrameSize
	}
	return &FrameScanner{max: max, buf: make([]byte, 0, max)}
}

// Feed consumes p and returns every frame completed by it.
// Returned frames do not alias p nor the scanner's buffer.
func (s *FrameScanner) Feed(p []byte) [][]byte {
	var frames [][]byte
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		chunk := p
		if i >= 0 {
			chunk = p[:i]
			p = p[i+1:]
		} else {
			p = nil
		}

		if !s.discarding {
			room := s.max - len(s.buf)
			if len(chunk) > room {
				s.buf = append(s.buf, chunk[:room]...)
				s.buf = s.buf[:runeBoundary(s.buf)]
				frames = append(frames, s.take())
				s.truncated++
				s.discarding = true
			} else {
				s.buf = append(s.buf, chunk...)
			}
		}

		if i >= 0 {
			if s.discarding {
				s.discarding = false
				continue
			}
			frames = append(frames, s.take())
		}
	}
	return frames
}

// Flush returns the unterminated remainder, if any, as a last frame.
func (s *FrameScanner) Flush() ([]byte, bool) {
	if len(s.buf) == 0 || s.discarding {
		s.buf = s.buf[:0]
		s.discarding = false
		return nil, false
	}
	return s.take(), true
}

// Buffered is the number of bytes waiting for a newline.
func (s *FrameScanner) Buffered() int { return len(s.buf) }

// Truncated counts the lines cut at the ceiling so far.
func (s *FrameScanner) Truncated() int { return s.truncated }

func (s *FrameScanner) take() []byte {
	frame := bytes.TrimSuffix(s.buf, []byte{'\r'})
	out := make([]byte, len(frame))
	copy(out, frame)
	s.buf = s.buf[:0]
	return out
}

// runeBoundary is len(b) minus a trailing rune left incomplete by a cut.
func runeBoundary(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
