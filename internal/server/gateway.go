// Package server bridges WebSocket peers into the hub: each binary
// WebSocket message carries exactly one fixed-width frame, so gateway
// clients are routed identically to raw TCP ones.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/framechat/internal/frame"
)

// errBadGatewayFrame reports a WebSocket message that is not a single
// binary frame of the protocol width. Terminal for the connection, like
// any other framing violation.
var errBadGatewayFrame = errors.New("server: websocket message is not one frame")

// Gateway is the optional HTTP front end exposing the WebSocket
// endpoint and a health check.
type Gateway struct {
	hub          *Hub
	log          *slog.Logger
	origin       *originPolicy
	upgrader     websocket.Upgrader
	srv          *http.Server
	writeTimeout time.Duration
}

// NewGateway creates a gateway bound to cfg.GatewayAddr serving the hub.
func NewGateway(cfg Config, hub *Hub, log *slog.Logger) *Gateway {
	cfg = sanitizeConfig(cfg)
	g := &Gateway{
		hub:          hub,
		log:          log,
		origin:       newOriginPolicy(cfg.AllowedOrigins, log),
		writeTimeout: cfg.WriteTimeout,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.origin.check,
	}
	g.srv = &http.Server{
		Addr:         cfg.GatewayAddr,
		Handler:      g.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return g
}

// Start begins listening for gateway connections. It blocks until the
// server stops; an orderly Shutdown is not reported as an error.
func (g *Gateway) Start() error {
	g.log.Info("gateway listening", "addr", g.srv.Addr)
	if err := g.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: gateway: %w", err)
	}
	return nil
}

// Serve accepts gateway connections on an existing listener. It blocks
// like Start and reports nil on orderly Shutdown.
func (g *Gateway) Serve(ln net.Listener) error {
	g.log.Info("gateway listening", "addr", ln.Addr())
	if err := g.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: gateway: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the gateway's HTTP server.
func (g *Gateway) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return g.srv.Shutdown(ctx)
}

// wsConn adapts a WebSocket connection to the Conn contract. Reads and
// writes use the binary message type; every message is one frame.
type wsConn struct {
	c            *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(c *websocket.Conn, writeTimeout time.Duration) *wsConn {
	c.SetReadLimit(frame.Width + 8)
	return &wsConn{c: c, writeTimeout: writeTimeout}
}

func (w *wsConn) ReadFrame(buf []byte) error {
	mt, data, err := w.c.ReadMessage()
	if err != nil {
		return err
	}
	if mt != websocket.BinaryMessage || len(data) != frame.Width {
		return errBadGatewayFrame
	}
	copy(buf, data)
	return nil
}

func (w *wsConn) WriteFrame(buf []byte) error {
	if err := w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.BinaryMessage, buf)
}

func (w *wsConn) RemoteAddr() string {
	return w.c.RemoteAddr().String()
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
