package ircreactor

import (
	"fmt"
	"strings"
)

const keepAliveCommand = "PING"

// Message is a single parsed line of the IRC wire protocol. The raw text is
// kept verbatim (minus the line terminator) so it can be re-sent or
// transformed textually.
type Message struct {
	raw     string
	tags    string
	prefix  string
	command string
	params  []string
}

// ParseMessage parses one line of raw wire text. A trailing CR/LF is ignored.
func ParseMessage(raw string) (Message, error) {
	raw = strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return Message{}, ErrEmptyMessage
	}
	msg := Message{raw: raw}
	rest := raw
	if strings.HasPrefix(rest, "@") {
		msg.tags, rest, _ = strings.Cut(rest[1:], " ")
		rest = strings.TrimLeft(rest, " ")
	}
	if strings.HasPrefix(rest, ":") {
		msg.prefix, rest, _ = strings.Cut(rest[1:], " ")
		rest = strings.TrimLeft(rest, " ")
	}
	msg.command, rest, _ = strings.Cut(rest, " ")
	if msg.command == "" {
		return Message{}, ErrMissingCommand
	}
	if !validCommand(msg.command) {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidCommand, msg.command)
	}
	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		if rest[0] == ':' {
			msg.params = append(msg.params, rest[1:])
			break
		}
		var param string
		param, rest, _ = strings.Cut(rest, " ")
		msg.params = append(msg.params, param)
	}
	return msg, nil
}

// NewMessage builds a message from a command and its parameters. Only the
// last parameter may contain spaces, be empty or start with a colon.
func NewMessage(command string, params ...string) (Message, error) {
	var sb strings.Builder
	sb.WriteString(command)
	for i, param := range params {
		if strings.ContainsAny(param, "\r\n\x00") {
			return Message{}, fmt.Errorf("%w: %q", ErrInvalidParam, param)
		}
		last := i == len(params)-1
		trailing := param == "" || strings.Contains(param, " ") || strings.HasPrefix(param, ":")
		if trailing && !last {
			return Message{}, fmt.Errorf("%w: %q", ErrInvalidParam, param)
		}
		sb.WriteByte(' ')
		if trailing {
			sb.WriteByte(':')
		}
		sb.WriteString(param)
	}
	return ParseMessage(sb.String())
}

func (m Message) Raw() string {
	return m.raw
}

func (m Message) Command() string {
	return m.command
}

func (m Message) Prefix() string {
	return m.prefix
}

func (m Message) Tags() string {
	return m.tags
}

func (m Message) Params() []string {
	return m.params
}

// Trailing returns the last parameter, or "" when there is none.
func (m Message) Trailing() string {
	if len(m.params) == 0 {
		return ""
	}
	return m.params[len(m.params)-1]
}

// Nick returns the nickname part of the prefix.
func (m Message) Nick() string {
	nick, _, _ := strings.Cut(m.prefix, "!")
	return nick
}

func (m Message) String() string {
	return m.raw
}

// keepAliveReply turns a PING into a PONG by replacing the first "I" of the
// raw text with "O" and parsing the result again.
func (m Message) keepAliveReply() (Message, error) {
	return ParseMessage(strings.Replace(m.raw, "I", "O", 1))
}

func validCommand(command string) bool {
	if len(command) == 3 && isDigit(command[0]) && isDigit(command[1]) && isDigit(command[2]) {
		return true
	}
	for i := 0; i < len(command); i++ {
		c := command[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
