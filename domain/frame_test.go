package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func toStrings(frames [][]byte) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, string(f))
	}
	return out
}

func TestFrameScanner_ReassemblesAcrossReads(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(DefaultFrameSize)

	// Given a line split over two reads
	req.Empty(s.Feed([]byte("hel")))
	req.Equal(3, s.Buffered())

	// When the rest arrives with a second full line
	frames := s.Feed([]byte("lo\r\nworld\n"))

	// Then both lines come out whole and CR is stripped
	req.Equal([]string{"hello", "world"}, toStrings(frames))
	req.Zero(s.Buffered())
}

func TestFrameScanner_EmptyLines(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(8)

	frames := s.Feed([]byte("\n\na\n"))

	req.Equal([]string{"", "", "a"}, toStrings(frames))
}

func TestFrameScanner_TruncatesLongLine(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(4)

	// Given a line longer than the ceiling followed by a normal one
	frames := s.Feed([]byte("abcdefgh\nok\n"))

	// Then the long line is cut and its tail is not a frame of its own
	req.Equal([]string{"abcd", "ok"}, toStrings(frames))
	req.Equal(1, s.Truncated())
}

func TestFrameScanner_TruncationKeepsWholeRunes(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(4)

	// Given a two-byte rune straddling the ceiling
	frames := s.Feed([]byte("aéé\nx€€\n"))

	// Then the cut falls before the rune, never inside it
	req.Equal([]string{"aé", "x€"}, toStrings(frames))
	for _, f := range frames {
		req.True(utf8.Valid(f))
	}
	req.Equal(2, s.Truncated())
}

func TestFrameScanner_TruncationSpanningReads(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(4)

	req.Equal([]string{"abcd"}, toStrings(s.Feed([]byte("abcdef"))))
	req.Empty(s.Feed([]byte("ghij")))
	req.Equal([]string{"next"}, toStrings(s.Feed([]byte("kl\nnext\n"))))
}

func TestFrameScanner_ExactCeilingIsNotTruncated(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(4)

	frames := s.Feed([]byte("abcd\n"))

	req.Equal([]string{"abcd"}, toStrings(frames))
	req.Zero(s.Truncated())
}

func TestFrameScanner_Flush(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(DefaultFrameSize)
	s.Feed([]byte("bye"))

	frame, ok := s.Flush()
	req.True(ok)
	req.Equal("bye", string(frame))

	_, ok = s.Flush()
	req.False(ok)
}

func TestFrameScanner_FramesDoNotAliasInput(t *testing.T) {
	req := require.New(t)
	s := NewFrameScanner(DefaultFrameSize)
	input := []byte("abc\n")

	frames := s.Feed(input)
	copy(input, strings.Repeat("x", len(input)))

	req.Equal("abc", string(frames[0]))
}

func TestParseCommand(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		frame string
		want  Command
	}{
		{frame: "/user Alice", want: Command{Kind: SetName, Arg: "Alice"}},
		{frame: "/user\tAl ice ", want: Command{Kind: SetName, Arg: "Al ice"}},
		{frame: "/user", want: Command{Kind: SetName}},
		{frame: "/users", want: Command{Kind: Say, Arg: "/users"}},
		{frame: "/quit", want: Command{Kind: Quit}},
		{frame: "/quit now", want: Command{Kind: Say, Arg: "/quit now"}},
		{frame: "hello", want: Command{Kind: Say, Arg: "hello"}},
	}
	for _, tt := range tests {
		req.Equal(tt.want, ParseCommand(tt.frame), tt.frame)
	}
	req.Equal("/user Bob", UserFrame("Bob"))
}
