// Package server reads operator input and injects it into the hub as
// synthetic envelopes carrying the reserved operator sender id.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrConsoleClosed reports that the operator input stream ended. The
// server treats losing its console as a fatal condition.
var ErrConsoleClosed = errors.New("server: operator console closed")

// Console feeds operator lines into the hub. Typically wrapped around
// os.Stdin, but any reader works, which is what the tests use.
type Console struct {
	hub *Hub
	in  io.Reader
	log *slog.Logger
}

// NewConsole creates a console reading operator input from in.
func NewConsole(hub *Hub, in io.Reader, log *slog.Logger) *Console {
	return &Console{hub: hub, in: in, log: log}
}

// Run reads operator lines until the hub shuts down or the input stream
// fails. It returns nil on orderly hub shutdown and an error when the
// console itself is lost, which callers should treat as fatal.
func (c *Console) Run() error {
	c.log.Info("operator console ready")

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !c.hub.Inject(Envelope{SenderID: OperatorID, Payload: line}) {
			// Hub is gone; orderly shutdown.
			return nil
		}
	}

	select {
	case <-c.hub.Done():
		return nil
	default:
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConsoleClosed, err)
	}
	return ErrConsoleClosed
}
