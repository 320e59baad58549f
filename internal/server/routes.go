// Package server wires the gateway's HTTP handlers into a ServeMux.
package server

import "net/http"

// routes configures and returns the gateway's HTTP routes: health check
// at the root and the WebSocket endpoint at /ws.
func (g *Gateway) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleHealth)
	mux.HandleFunc("/ws", g.handleWebSocket)
	return mux
}
