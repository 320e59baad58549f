// Package server interprets parsed slash commands against the user
// registry and the account store.
package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Tyrowin/framechat/internal/account"
	"github.com/Tyrowin/framechat/internal/command"
)

// dispatch interprets a command message from a registered user. Unknown
// verbs are logged locally and produce no outbound traffic; malformed
// argument counts are reported back to the invoker in a single frame.
func (h *Hub) dispatch(u *User, text string) {
	inv, err := command.Parse(text)
	if err != nil {
		var arity *command.ArityError
		if errors.As(err, &arity) {
			h.sendText(u, arity.Error())
			return
		}
		h.log.Warn("rejected command", "id", u.ID, "error", err)
		return
	}

	switch inv.Verb {
	case command.Login:
		h.handleLogin(u, inv.Args[0], inv.Args[1])
	case command.Create:
		h.handleCreate(u, inv.Args[0], inv.Args[1])
	case command.Whisper:
		h.handleWhisper(u, inv.Args[0], strings.Join(inv.Args[1:], " "))
	case command.ListAll:
		h.handleListAll(u)
	case command.Ping:
		h.sendText(u, "pong")
	case command.AboutMe:
		h.sendText(u, fmt.Sprintf("Username: %s, ID: %d", u.Name, u.ID))
	case command.Stop:
		// Operator-only; remote clients cannot stop the server.
		h.log.Warn("ignoring /stop from remote client", "id", u.ID, "name", u.Name)
	}
}

// handleLogin renames the invoker to the account name if the
// credentials match an existing record. No state changes otherwise.
func (h *Hub) handleLogin(u *User, username, password string) {
	switch h.accounts.Lookup(username, password) {
	case account.OK:
		u.Name = username
		h.log.Info("user logged in", "id", u.ID, "name", u.Name)
		h.sendText(u, fmt.Sprintf("Welcome back, %s!", username))
	case account.WrongPassword, account.Absent:
		h.sendText(u, "Login failed: invalid username or password.")
	}
}

// handleCreate inserts a new account and renames the invoker, unless
// the username is already taken. The uniqueness check lives here; the
// store itself appends blindly.
func (h *Hub) handleCreate(u *User, username, password string) {
	if h.accounts.Lookup(username, password) != account.Absent {
		h.sendText(u, fmt.Sprintf("Account %s already exists.", username))
		return
	}

	h.accounts.Insert(username, password)
	u.Name = username
	h.log.Info("account created", "id", u.ID, "name", u.Name)
	h.sendText(u, fmt.Sprintf("Account created. Welcome, %s!", username))
}

// handleWhisper delivers a direct message to the first registered user
// with the given display name; nobody else sees it.
func (h *Hub) handleWhisper(u *User, name, msg string) {
	target := h.lookupName(name)
	if target == nil {
		h.sendText(u, fmt.Sprintf("No user named %s.", name))
		return
	}
	h.sendText(target, fmt.Sprintf("%s (whisper): %s", u.Name, msg))
}

// handleListAll enumerates current display names back to the invoker:
// a header frame followed by one frame per name, in registry order.
func (h *Hub) handleListAll(u *User) {
	if !h.sendText(u, fmt.Sprintf("Connected users: %d", len(h.users))) {
		return
	}
	for _, other := range h.snapshot() {
		if !h.sendText(u, other.Name) {
			return
		}
	}
}

// handleOperator interprets a line from the server operator console,
// injected with the reserved sender id. Only /stop has an effect;
// anything else is logged and dropped.
func (h *Hub) handleOperator(text string) {
	if !command.IsCommand(text) {
		h.log.Info("ignoring operator input; only commands are accepted", "input", text)
		return
	}

	inv, err := command.Parse(text)
	if err != nil {
		h.log.Warn("rejected operator command", "error", err)
		return
	}

	switch inv.Verb {
	case command.Stop:
		h.stop()
	default:
		h.log.Warn("operator command has no effect", "verb", inv.Verb.String())
	}
}
