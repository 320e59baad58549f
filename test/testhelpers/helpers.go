// Package testhelpers provides frame-speaking client utilities shared
// by the integration tests.
package testhelpers

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/Tyrowin/framechat/internal/frame"
)

// ChatClient is a minimal test peer speaking the fixed-width frame
// protocol over TCP.
type ChatClient struct {
	t    *testing.T
	conn net.Conn
}

// Dial connects a ChatClient to addr and registers cleanup.
func Dial(t *testing.T, addr string) *ChatClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &ChatClient{t: t, conn: conn}
}

// Send encodes text into one frame and writes it.
func (c *ChatClient) Send(text string) {
	c.t.Helper()
	if _, err := c.conn.Write(frame.Encode(text)); err != nil {
		c.t.Fatalf("send %q: %v", text, err)
	}
}

// SendRaw writes an arbitrary byte block, for protocol-violation tests.
func (c *ChatClient) SendRaw(buf []byte) {
	c.t.Helper()
	if _, err := c.conn.Write(buf); err != nil {
		c.t.Fatalf("send raw frame: %v", err)
	}
}

// Recv reads and decodes exactly one frame, failing the test after the
// timeout.
func (c *ChatClient) Recv(timeout time.Duration) string {
	c.t.Helper()
	buf := make([]byte, frame.Width)
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		c.t.Fatalf("receive frame: %v", err)
	}
	text, err := frame.Decode(buf)
	if err != nil {
		c.t.Fatalf("decode frame: %v", err)
	}
	return text
}

// Expect asserts the next received frame decodes to want.
func (c *ChatClient) Expect(want string) {
	c.t.Helper()
	if got := c.Recv(2 * time.Second); got != want {
		c.t.Fatalf("received %q, want %q", got, want)
	}
}

// ExpectSilence asserts no frame arrives within the window.
func (c *ChatClient) ExpectSilence() {
	c.t.Helper()
	buf := make([]byte, frame.Width)
	_ = c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	n, err := c.conn.Read(buf)
	if err == nil {
		text, _ := frame.Decode(buf[:n])
		c.t.Fatalf("unexpected frame delivered: %q", text)
	}
	if nerr, ok := err.(net.Error); !ok || !nerr.Timeout() {
		c.t.Fatalf("unexpected read error while expecting silence: %v", err)
	}
}

// ExpectClosed asserts the server side of the connection goes away.
func (c *ChatClient) ExpectClosed(timeout time.Duration) {
	c.t.Helper()
	buf := make([]byte, frame.Width)
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	if _, err := io.ReadFull(c.conn, buf); err == nil {
		c.t.Fatal("connection still open; expected close")
	} else if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		c.t.Fatal("connection still open after timeout; expected close")
	}
}

// Close shuts the client connection down.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}
