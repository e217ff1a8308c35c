package domain

import (
	"strings"
	"unicode"
)

const (
	UserCommand = "/user"
	QuitCommand = "/quit"
)

type CommandKind int

const (
	Say CommandKind = iota
	SetName
	Quit
)

// Command is one parsed inbound frame.
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand interprets a trimmed frame.
// "/user" is matched as a whole token so "/username" stays chat text.
func ParseCommand(frame string) Command {
	if frame == QuitCommand {
		return Command{Kind: Quit}
	}
	if rest, ok := strings.CutPrefix(frame, UserCommand); ok {
		if rest == "" {
			return Command{Kind: SetName}
		}
		r := []rune(rest)[0]
		if unicode.IsSpace(r) {
			return Command{Kind: SetName, Arg: strings.TrimSpace(rest)}
		}
	}
	return Command{Kind: Say, Arg: frame}
}

// UserFrame renders the naming command sent by a client.
func UserFrame(name string) string {
	return UserCommand + " " + name
}
