package server

import (
	"fmt"
	"net/http"
)

// handleWebSocket upgrades the request and hands the connection to a new
// client, whose pumps run for the connection's lifetime.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn, s.dispatcher, s.cfg, s.log)
	s.log.Info().Str("conn", client.ConnID()).Str("remote", r.RemoteAddr).Msg("client connected")

	go client.writePump()
	go client.readPump()
}

// handleHealth reports liveness in plain text.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "chatwire relay is running")
}
