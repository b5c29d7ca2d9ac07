// Package chat implements the relay core: session identity, room
// membership, and per-connection message dispatch. The transport layer
// feeds raw frames in through the Dispatcher and receives outbound frames
// through the Peer interface it implements.
package chat

import "github.com/chatwire/chatwire/internal/protocol"

// Peer is the outbound half of one client connection.
//
// Send is fire and forget: it must not block, and a dropped or failed send
// to one peer must never affect delivery to any other peer.
type Peer interface {
	// ConnID returns the server-generated capability handle identifying
	// this connection. It is compared during frame validation and is
	// never revealed to clients.
	ConnID() string

	Send(m protocol.Message)
}
