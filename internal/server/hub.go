// Package server coordinates connection registration, message
// broadcast, and command dispatch for the chat system via the Hub type.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tyrowin/framechat/internal/account"
	"github.com/Tyrowin/framechat/internal/command"
	"github.com/Tyrowin/framechat/internal/frame"
)

// shutdownNotice is broadcast to every registered user before an
// operator-initiated stop terminates the process.
const shutdownNotice = "Server is shutting down. Goodbye!"

// Hub is the single authority over the set of connected users. The
// registry, the account store, and every outbound write are confined to
// the goroutine running Run, so no locks guard them; all other
// goroutines talk to the hub through the register and inbound channels.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	accounts *account.Store

	// users is the ordered registry. Hub goroutine only.
	users  []*User
	nextID uint64

	inbound  chan Envelope
	register chan Conn

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	wg       sync.WaitGroup
	stopping bool
	stopErr  error
}

// NewHub creates a hub over the given account store. The store must
// already be loaded; the hub flushes it on operator shutdown.
func NewHub(cfg Config, accounts *account.Store, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:      sanitizeConfig(cfg),
		log:      log,
		accounts: accounts,
		nextID:   1,
		inbound:  make(chan Envelope, 256),
		register: make(chan Conn),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Register hands a new connection to the hub, which assigns it the next
// id, adds it to the registry, and starts its ingestor. It reports
// false once the hub has shut down; the caller then owns the
// connection again.
func (h *Hub) Register(c Conn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Inject queues a synthetic envelope, bypassing any ingestor. Used by
// the operator console with SenderID OperatorID. It reports false once
// the hub has shut down.
func (h *Hub) Inject(env Envelope) bool {
	select {
	case h.inbound <- env:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Done is closed after Run has returned and the registry is torn down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Err reports the error, if any, recorded while persisting the account
// store during shutdown. Meaningful only after Done is closed.
func (h *Hub) Err() error {
	return h.stopErr
}

// Run is the hub's main event loop: it admits registered connections,
// drains inbound envelopes, and tears everything down once shutdown is
// signalled. It should run in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownUsers()
			return

		case c := <-h.register:
			h.admit(c)

		case env := <-h.inbound:
			h.process(env)
		}
	}
}

// admit inserts a new user into the registry and starts its ingestor.
// The user is an eligible broadcast recipient from this moment on, even
// for envelopes drained later in the same cycle.
func (h *Hub) admit(c Conn) {
	u := &User{
		ID:      h.nextID,
		Name:    fmt.Sprintf("Guest%d", h.nextID),
		conn:    c,
		session: uuid.New(),
		limiter: newRateLimiter(h.cfg.RateLimit.Burst, h.cfg.RateLimit.RefillInterval),
	}
	h.nextID++
	h.users = append(h.users, u)

	h.log.Info("client connected",
		"id", u.ID, "name", u.Name, "addr", c.RemoteAddr(),
		"session", u.session, "users", len(h.users))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.readLoop(u)
	}()
}

// readLoop is the connection ingestor: it reads exactly one frame at a
// time, decodes it, and forwards the text tagged with the user's id.
// Any read or decode failure is terminal for the connection's read
// side; registry removal still happens only when a write fails.
func (h *Hub) readLoop(u *User) {
	buf := make([]byte, frame.Width)
	for {
		if err := u.conn.ReadFrame(buf); err != nil {
			h.log.Info("connection read ended",
				"id", u.ID, "session", u.session, "error", err)
			_ = u.conn.Close()
			return
		}

		text, err := frame.Decode(buf)
		if err != nil {
			// Protocol violation; the codec does not resynchronize.
			h.log.Warn("closing connection on framing error",
				"id", u.ID, "session", u.session, "error", err)
			_ = u.conn.Close()
			return
		}

		if !u.limiter.allow() {
			h.log.Warn("rate limit exceeded; discarding frame",
				"id", u.ID, "burst", h.cfg.RateLimit.Burst)
			continue
		}

		select {
		case h.inbound <- Envelope{SenderID: u.ID, Payload: text}:
		case <-h.ctx.Done():
			return
		}
	}
}

// process routes one envelope: operator input is dispatched directly,
// sender ids that no longer resolve are dropped, commands go to the
// dispatcher, and everything else is broadcast.
func (h *Hub) process(env Envelope) {
	if env.SenderID == OperatorID {
		h.handleOperator(env.Payload)
		return
	}

	sender := h.lookup(env.SenderID)
	if sender == nil {
		// Sender disconnected before its envelope was drained.
		h.log.Info("dropping envelope from departed sender", "id", env.SenderID)
		return
	}

	if command.IsCommand(env.Payload) {
		h.dispatch(sender, env.Payload)
		return
	}

	h.broadcast(sender, env.Payload)
}

// broadcast formats and delivers chat text to every registered user
// except the sender. A failed recipient is removed mid-pass without
// aborting delivery to the rest.
func (h *Hub) broadcast(sender *User, text string) {
	buf := frame.Encode(sender.Name + ": " + text)

	for _, u := range h.snapshot() {
		if u.ID == sender.ID {
			continue
		}
		h.writeFrame(u, buf)
	}
}

// sendText encodes and writes a single response frame to one user. It
// reports whether the write succeeded; on failure the user has already
// been removed.
func (h *Hub) sendText(u *User, text string) bool {
	return h.writeFrame(u, frame.Encode(text))
}

func (h *Hub) writeFrame(u *User, buf []byte) bool {
	if err := u.conn.WriteFrame(buf); err != nil {
		h.log.Info("write failed; removing user",
			"id", u.ID, "name", u.Name, "session", u.session, "error", err)
		h.remove(u)
		return false
	}
	return true
}

// lookup resolves an id against the registry.
func (h *Hub) lookup(id uint64) *User {
	for _, u := range h.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// lookupName resolves a display name against the registry; first match
// wins.
func (h *Hub) lookupName(name string) *User {
	for _, u := range h.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// snapshot copies the registry so delivery passes can remove users
// while iterating.
func (h *Hub) snapshot() []*User {
	return append([]*User(nil), h.users...)
}

// remove deletes a user from the registry and closes its connection,
// which also terminates its ingestor.
func (h *Hub) remove(target *User) {
	for i, u := range h.users {
		if u.ID == target.ID {
			h.users = append(h.users[:i], h.users[i+1:]...)
			_ = target.conn.Close()
			h.log.Info("client removed", "id", target.ID, "name", target.Name, "users", len(h.users))
			return
		}
	}
}

// stop performs the operator shutdown sequence: persist accounts,
// notify every user, wait out the grace delay, then signal Run to tear
// down. A persist failure is recorded as a fatal condition but does not
// block the shutdown itself.
func (h *Hub) stop() {
	if h.stopping {
		return
	}
	h.stopping = true

	h.log.Info("stopping server", "users", len(h.users))

	if err := h.accounts.Flush(); err != nil {
		h.log.Error("failed to persist accounts", "error", err)
		h.stopErr = err
	}

	buf := frame.Encode(shutdownNotice)
	for _, u := range h.snapshot() {
		h.writeFrame(u, buf)
	}

	time.Sleep(h.cfg.ShutdownGrace)
	h.cancel()
}

// shutdownUsers closes every remaining connection and clears the
// registry as Run exits.
func (h *Hub) shutdownUsers() {
	for _, u := range h.users {
		_ = u.conn.Close()
	}
	h.log.Info("closed client connections", "count", len(h.users))
	h.users = nil
}

// Shutdown signals the hub to stop and waits for the event loop and all
// ingestor goroutines to finish, or for the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
