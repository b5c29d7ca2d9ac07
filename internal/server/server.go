package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/internal/chat"
)

// Server wires the chat dispatcher to its WebSocket and HTTP endpoints.
// Each Server owns its own registries, so isolated instances can run side
// by side, notably under test.
type Server struct {
	cfg        Config
	dispatcher *chat.Dispatcher
	upgrader   websocket.Upgrader
	log        zerolog.Logger

	httpSrv *http.Server
}

// New builds a fully wired but not yet listening server.
func New(cfg Config, log zerolog.Logger) *Server {
	dispatcher := chat.NewDispatcher(chat.NewSessions(), chat.NewRooms(), log)
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		log: log,
	}
}

// ListenAndServe starts the HTTP server and blocks until it exits.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info().Str("addr", s.cfg.Addr).Msg("relay listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen")
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight
// requests up to the context deadline. Live WebSocket connections are cut
// by the process exiting; their cleanup path needs no draining.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	s.log.Info().Msg("shutting down http server")
	return errors.Wrap(s.httpSrv.Shutdown(ctx), "shutdown")
}
