// Package server runs the stream-socket accept loop that feeds newly
// connected peers into the hub.
package server

import (
	"errors"
	"net"
)

// Serve accepts connections from ln and registers each with the hub
// until the hub shuts down. It closes the listener on shutdown and owns
// it from the moment it is called.
func (h *Hub) Serve(ln net.Listener) {
	go func() {
		<-h.ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			h.log.Warn("accept failed", "error", err)
			continue
		}

		if !h.Register(newTCPConn(conn, h.cfg.WriteTimeout)) {
			_ = conn.Close()
			return
		}
	}
}
