package chat

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/chatwire/chatwire/internal/protocol"
)

type handlerFunc func(msg protocol.Message, peer Peer) error

// Dispatcher runs the per-connection protocol: it decodes and validates
// each inbound frame, routes it to the handler for its type, and converts
// every failure into an ERROR reply to the originating connection. No
// protocol failure ever tears down a connection.
type Dispatcher struct {
	sessions *Sessions
	rooms    *Rooms
	handlers map[protocol.Type]handlerFunc
	log      zerolog.Logger
}

// NewDispatcher wires a dispatcher to the given registries. The registries
// are passed in, not ambient, so isolated instances can run side by side.
func NewDispatcher(sessions *Sessions, rooms *Rooms, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		sessions: sessions,
		rooms:    rooms,
		log:      log,
	}
	// Only client-originated types get a handler. Server-originated types
	// such as NOTICE or JOINED decode fine but are unroutable.
	d.handlers = map[protocol.Type]handlerFunc{
		protocol.TypeRegister: d.handleRegister,
		protocol.TypeJoin:     d.handleJoin,
		protocol.TypeLeave:    d.handleLeave,
		protocol.TypeMsg:      d.handleMsg,
	}
	return d
}

// HandleFrame processes one raw inbound frame from peer.
func (d *Dispatcher) HandleFrame(raw []byte, peer Peer) {
	msg, err := protocol.Decode(raw, peer.ConnID(), d.sessions)
	if err != nil {
		d.replyError(peer, err)
		return
	}
	handler, ok := d.handlers[msg.Type]
	if !ok {
		d.replyError(peer, errors.New("Unknown message format"))
		return
	}
	if err := handler(msg, peer); err != nil {
		d.replyError(peer, err)
	}
}

// Disconnect releases every session bound to the closing connection and
// applies leave side effects in each room the session belonged to. Safe to
// call more than once for the same handle.
func (d *Dispatcher) Disconnect(conn string) {
	for _, sess := range d.sessions.RemoveByConn(conn) {
		d.rooms.RemoveSession(sess)
		d.log.Info().Str("name", sess.Name).Msg("session removed")
	}
}

func (d *Dispatcher) replyError(peer Peer, err error) {
	d.log.Debug().Err(err).Str("conn", peer.ConnID()).Msg("rejected frame")
	peer.Send(protocol.Message{
		Type:    protocol.TypeError,
		Sender:  protocol.SenderServer,
		Content: err.Error(),
	})
}

func (d *Dispatcher) handleRegister(msg protocol.Message, peer Peer) error {
	sess, err := d.sessions.Register(msg.Sender, peer)
	if err != nil {
		peer.Send(protocol.Message{
			Type:    protocol.TypeRegFailed,
			Sender:  protocol.SenderServer,
			Content: msg.Sender,
		})
		return nil
	}
	roomList := strings.Join(d.rooms.Names(), " ")
	sess.Send(protocol.Message{
		Type:    protocol.TypeRegistered,
		Sender:  protocol.SenderServer,
		Content: fmt.Sprintf("Welcome to chat, %s. Currently available rooms are: %s", msg.Sender, roomList),
	})
	d.log.Info().Str("name", msg.Sender).Msg("session registered")
	return nil
}

func (d *Dispatcher) handleJoin(msg protocol.Message, _ Peer) error {
	sess, ok := d.sessions.Lookup(msg.Sender)
	if !ok {
		return &protocol.FormatError{Reason: fmt.Sprintf("The user %s doesn't exist.", msg.Sender)}
	}
	d.rooms.Join(msg.Destination[1:], sess)
	return nil
}

func (d *Dispatcher) handleLeave(msg protocol.Message, _ Peer) error {
	sess, ok := d.sessions.Lookup(msg.Sender)
	if !ok {
		return &protocol.FormatError{Reason: fmt.Sprintf("The user %s doesn't exist.", msg.Sender)}
	}
	d.rooms.Leave(msg.Destination[1:], sess)
	return nil
}

func (d *Dispatcher) handleMsg(msg protocol.Message, _ Peer) error {
	dest := msg.Destination
	switch dest[0] {
	case protocol.UserPrefix:
		target, ok := d.sessions.Lookup(dest[1:])
		if !ok {
			return &protocol.RoutingError{Reason: fmt.Sprintf("The user '%s' does not exist.", dest)}
		}
		target.Send(protocol.Message{
			Type:        protocol.TypeMsg,
			Sender:      msg.Sender,
			Destination: dest,
			Content:     msg.Content,
		})
		return nil
	case protocol.RoomPrefix:
		return d.rooms.Broadcast(dest[1:], msg)
	default:
		// Frame validation already enforces the prefix; kept for parity
		// with direct handler invocation.
		return &protocol.RoutingError{Reason: "Can only send to a @user or #chatroom."}
	}
}
