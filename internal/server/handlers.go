// Package server exposes the gateway's HTTP handlers: the WebSocket
// upgrade endpoint and a health check.
package server

import (
	"fmt"
	"net/http"
)

// handleWebSocket upgrades the HTTP connection and registers the peer
// with the hub, which assigns its id and starts its ingestor.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	if !g.hub.Register(newWSConn(conn, g.writeTimeout)) {
		_ = conn.Close()
	}
}

// handleHealth reports that the service is up.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "framechat server is running!")
}
