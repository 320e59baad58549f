// Package server defines the shared connection and envelope types that
// are reused across ingestor and hub logic.
package server

import (
	"io"
	"net"
	"time"

	"github.com/google/uuid"
)

// OperatorID is the reserved sender id for envelopes injected by the
// operator console. It never collides with connection ids, which start
// at 1.
const OperatorID uint64 = 0

// Conn is the frame-oriented connection contract shared by the raw TCP
// listener and the WebSocket gateway. ReadFrame is called only by the
// connection's ingestor goroutine and WriteFrame only by the hub
// goroutine, so neither end ever races with itself.
type Conn interface {
	// ReadFrame fills buf with exactly one frame, blocking until a full
	// frame or an error arrives.
	ReadFrame(buf []byte) error
	// WriteFrame writes one frame. Any failure means the peer is
	// presumed gone.
	WriteFrame(buf []byte) error
	RemoteAddr() string
	Close() error
}

// User is one registered connection: a stable id assigned at accept
// time (monotonic, never reused), a mutable display name, and the
// exclusive write endpoint owned by the hub. Users leave the registry
// only when a write to their endpoint fails or the server shuts down.
type User struct {
	ID   uint64
	Name string

	conn    Conn
	session uuid.UUID
	limiter *rateLimiter
}

// Envelope carries one decoded inbound message from an ingestor to the
// hub. Consumed exactly once; never persisted.
type Envelope struct {
	SenderID uint64
	Payload  string
}

// tcpConn adapts a stream socket to the Conn contract.
type tcpConn struct {
	nc           net.Conn
	writeTimeout time.Duration
}

func newTCPConn(nc net.Conn, writeTimeout time.Duration) *tcpConn {
	return &tcpConn{nc: nc, writeTimeout: writeTimeout}
}

func (c *tcpConn) ReadFrame(buf []byte) error {
	_, err := io.ReadFull(c.nc, buf)
	return err
}

func (c *tcpConn) WriteFrame(buf []byte) error {
	if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	_, err := c.nc.Write(buf)
	return err
}

func (c *tcpConn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

func (c *tcpConn) Close() error {
	return c.nc.Close()
}
