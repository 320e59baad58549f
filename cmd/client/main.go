package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/Tyrowin/framechat/internal/command"
	"github.com/Tyrowin/framechat/internal/frame"
)

type config struct {
	Addr string `env:"CHAT_ADDR"`
}

func main() {
	cfg := config{Addr: "127.0.0.1:6000"}
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", cfg.Addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to server at: %s\n", cfg.Addr)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("Connected to server at: %s\n", cfg.Addr)

	lost := make(chan struct{})
	go receive(conn, lost)

	stdin := bufio.NewScanner(os.Stdin)

	if user, pass, ok := promptLogin(stdin, true); ok {
		send(conn, fmt.Sprintf("/login %s %s", user, pass))
	}

	fmt.Println("Chat open:")
	for {
		select {
		case <-lost:
			fmt.Println("Closing chat...")
			return
		default:
		}

		if !stdin.Scan() {
			fmt.Println("Closing chat...")
			return
		}
		msg := strings.TrimSpace(stdin.Text())
		if msg == "" {
			continue
		}
		if msg == ":quit" {
			fmt.Println("Closing chat...")
			return
		}

		if command.IsCommand(msg) {
			msg = validateCommand(stdin, msg)
			if msg == "" {
				continue
			}
		}

		if err := send(conn, msg); err != nil {
			fmt.Println("Failed to send message!")
			fmt.Println("Closing chat...")
			return
		}
	}
}

// receive prints every frame from the server until the connection dies.
func receive(conn net.Conn, lost chan<- struct{}) {
	buf := make([]byte, frame.Width)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			fmt.Println("Lost connection with server!")
			close(lost)
			return
		}
		text, err := frame.Decode(buf)
		if err != nil {
			fmt.Println("Received a malformed message; disconnecting.")
			close(lost)
			return
		}
		fmt.Println(text)
	}
}

func send(conn net.Conn, text string) error {
	_, err := conn.Write(frame.Encode(text))
	return err
}

// validateCommand checks a command locally before it goes on the wire.
// Malformed /login falls back to the interactive prompt; other problems
// re-prompt with a usage line. Returns the message to send, or "" to
// skip.
func validateCommand(stdin *bufio.Scanner, msg string) string {
	inv, err := command.Parse(msg)
	if err != nil {
		var arity *command.ArityError
		switch {
		case errors.As(err, &arity) && arity.Verb == command.Login:
			if user, pass, ok := promptLogin(stdin, false); ok {
				return fmt.Sprintf("/login %s %s", user, pass)
			}
			return ""
		case errors.As(err, &arity):
			fmt.Println(arity.Error())
			return ""
		default:
			fmt.Println("Unknown command!")
			return ""
		}
	}

	if inv.Verb == command.Stop {
		fmt.Println("Only the server operator can do that.")
		return ""
	}
	return msg
}

// promptLogin interactively collects credentials, mirroring the
// original client's flow: optional confirmation, ":cancel" to abort,
// ASCII-only input.
func promptLogin(stdin *bufio.Scanner, askForConfirmation bool) (string, string, bool) {
	if askForConfirmation {
		fmt.Println("Do you want to log in: (y/n)")
		if !stdin.Scan() || strings.TrimSpace(stdin.Text()) != "y" {
			return "", "", false
		}
	}

	username, ok := promptField(stdin, "Write your username: (\":cancel\" to stop logging in)")
	if !ok {
		return "", "", false
	}
	password, ok := promptField(stdin, "Write your password: (\":cancel\" to stop logging in)")
	if !ok {
		return "", "", false
	}

	if !isASCII(username) || !isASCII(password) {
		fmt.Println("Failed to log in. Use ascii next time!")
		return "", "", false
	}
	return username, password, true
}

func promptField(stdin *bufio.Scanner, prompt string) (string, bool) {
	fmt.Println(prompt)
	if !stdin.Scan() {
		return "", false
	}
	value := strings.ToLower(strings.TrimSpace(stdin.Text()))
	if value == ":cancel" || value == "" {
		fmt.Println("Canceled log in.")
		return "", false
	}
	return value, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
