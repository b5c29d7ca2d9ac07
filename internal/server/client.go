// Package server bridges the relay core to its WebSocket and HTTP surface:
// per-connection read/write pumps, upgrade handling, origin policy, and
// process-level wiring.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/internal/chat"
	"github.com/chatwire/chatwire/internal/protocol"
)

const (
	// writeWait bounds a single outbound write.
	writeWait = 10 * time.Second
	// pongWait is how long the connection may stay silent before the read
	// side gives up; pings go out well inside that window.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client owns one WebSocket connection. It implements chat.Peer: the
// dispatcher addresses it only through its connection handle and its
// fire-and-forget Send.
type Client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	dispatcher *chat.Dispatcher
	log        zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, dispatcher *chat.Dispatcher, cfg Config, log zerolog.Logger) *Client {
	id := uuid.NewString()
	conn.SetReadLimit(cfg.MaxMessageSize)
	return &Client{
		id:         id,
		conn:       conn,
		send:       make(chan []byte, cfg.SendBuffer),
		dispatcher: dispatcher,
		log:        log.With().Str("conn", id).Str("remote", conn.RemoteAddr().String()).Logger(),
		done:       make(chan struct{}),
	}
}

// ConnID implements chat.Peer.
func (c *Client) ConnID() string { return c.id }

// Send encodes and enqueues one outbound frame. It never blocks: when the
// buffer is full the connection is considered too slow to keep and is
// closed, which drives the normal disconnect cleanup through the read pump.
func (c *Client) Send(m protocol.Message) {
	payload, err := protocol.Encode(m)
	if err != nil {
		c.log.Error().Err(err).Msg("encode outbound frame")
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- payload:
	default:
		c.log.Warn().Msg("send buffer full; dropping slow connection")
		c.close()
	}
}

// close shuts the connection down at most once. The read pump's exit is
// what triggers session cleanup, so closing the conn is always enough.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("close connection")
		}
	})
}

// readPump pulls frames off the wire and feeds them to the dispatcher. It
// runs until the connection dies, then performs the one-shot disconnect
// cleanup for every session bound to this connection.
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.dispatcher.Disconnect(c.id)
		c.log.Info().Msg("client disconnected")
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadExit(err)
			return
		}
		c.dispatcher.HandleFrame(raw, c)
	}
}

func (c *Client) logReadExit(err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug().Err(err).Msg("connection closed")
	case isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("connection closed")
	default:
		c.log.Warn().Err(err).Msg("websocket read error")
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug().Err(err).Msg("websocket write error")
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
