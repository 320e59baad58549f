// Package command parses the slash-command sub-protocol layered on top
// of plain chat text into a closed set of typed invocations.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// Sigil marks a message as a command rather than chat text.
const Sigil = '/'

// Verb enumerates every command the dispatcher understands.
type Verb int

const (
	Login Verb = iota
	Create
	Whisper
	ListAll
	Ping
	AboutMe
	// Stop is operator-only; remote clients sending it are rejected at
	// dispatch time, not parse time.
	Stop
)

// String returns the wire spelling of the verb, sigil included.
func (v Verb) String() string {
	switch v {
	case Login:
		return "/login"
	case Create:
		return "/create"
	case Whisper:
		return "/whisper"
	case ListAll:
		return "/listall"
	case Ping:
		return "/ping"
	case AboutMe:
		return "/aboutme"
	case Stop:
		return "/stop"
	default:
		return fmt.Sprintf("Verb(%d)", int(v))
	}
}

// Invocation is a parsed command: a verb plus its validated argument
// tokens. Transient; parsed per message and never stored.
type Invocation struct {
	Verb Verb
	Args []string
}

// ErrUnknownVerb reports a command whose verb is not in the enumerated
// set. The router logs it locally and produces no outbound traffic.
var ErrUnknownVerb = errors.New("command: unknown verb")

// ErrNotCommand reports text that does not start with the sigil.
var ErrNotCommand = errors.New("command: missing sigil")

// ArityError reports a recognized verb invoked with the wrong number of
// arguments. Its message is sized to fit in a single response frame.
type ArityError struct {
	Verb Verb
	Want string
	Got  int
}

func (e *ArityError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("usage: %s %s", e.Verb, e.Want))
}

// IsCommand reports whether text should be parsed as a command.
func IsCommand(text string) bool {
	return len(text) > 0 && text[0] == Sigil
}

// Parse validates text as a command invocation. Verb and arity are both
// checked here so the dispatcher only ever sees well-formed input.
func Parse(text string) (Invocation, error) {
	if !IsCommand(text) {
		return Invocation{}, ErrNotCommand
	}

	tokens := strings.Fields(text)
	verb, args := tokens[0], tokens[1:]

	switch verb {
	case "/login":
		return fixedArity(Login, "<user> <pass>", args, 2)
	case "/create":
		return fixedArity(Create, "<user> <pass>", args, 2)
	case "/whisper":
		if len(args) < 2 {
			return Invocation{}, &ArityError{Verb: Whisper, Want: "<user> <message...>", Got: len(args)}
		}
		return Invocation{Verb: Whisper, Args: args}, nil
	case "/listall":
		return fixedArity(ListAll, "", args, 0)
	case "/ping":
		return fixedArity(Ping, "", args, 0)
	case "/aboutme":
		return fixedArity(AboutMe, "", args, 0)
	case "/stop":
		return fixedArity(Stop, "", args, 0)
	default:
		return Invocation{}, fmt.Errorf("%w: %s", ErrUnknownVerb, verb)
	}
}

func fixedArity(verb Verb, want string, args []string, n int) (Invocation, error) {
	if len(args) != n {
		return Invocation{}, &ArityError{Verb: verb, Want: want, Got: len(args)}
	}
	return Invocation{Verb: verb, Args: args}, nil
}
