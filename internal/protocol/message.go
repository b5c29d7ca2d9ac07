// Package protocol implements the wire envelope exchanged between chat
// clients and the relay: decoding, encoding, and the ordered validation
// rules every inbound frame must pass before it reaches a handler.
package protocol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Type identifies the kind of a wire message.
type Type string

// The fixed message type set. Anything outside this set is rejected at
// decode time.
const (
	TypeRegister   Type = "REGISTER"
	TypeJoin       Type = "JOIN"
	TypeJoined     Type = "JOINED"
	TypeNotice     Type = "NOTICE"
	TypeLeave      Type = "LEAVE"
	TypeMsg        Type = "MSG"
	TypeError      Type = "ERROR"
	TypeRegistered Type = "REGISTERED"
	TypeRegFailed  Type = "REGFAILED"
)

// SenderServer is the sender name carried by every server-originated frame.
const SenderServer = "SERVER"

// MaxSenderLen bounds the length of a claimed screenname, in characters.
const MaxSenderLen = 64

// Destination prefixes: @ addresses a single user, # addresses a room.
const (
	UserPrefix = '@'
	RoomPrefix = '#'
)

var knownTypes = map[Type]struct{}{
	TypeRegister:   {},
	TypeJoin:       {},
	TypeJoined:     {},
	TypeNotice:     {},
	TypeLeave:      {},
	TypeMsg:        {},
	TypeError:      {},
	TypeRegistered: {},
	TypeRegFailed:  {},
}

// Message is one frame on the wire. Destination and Content are optional
// and omitted from the encoded form when empty; msgtype and sender are
// always present.
type Message struct {
	Type        Type   `json:"msgtype"`
	Sender      string `json:"sender"`
	Destination string `json:"destination,omitempty"`
	Content     string `json:"content,omitempty"`
}

// Identities resolves a claimed sender name to the connection handle it is
// bound to. The identity rule compares handles, never names, so a client
// cannot speak as a user it did not register on its own connection.
type Identities interface {
	BoundTo(sender string) (conn string, ok bool)
}

// wireMessage is the decode-side shape of a frame. The sender is a pointer
// so a missing key and an explicit empty string fail with different errors.
type wireMessage struct {
	Type        Type    `json:"msgtype"`
	Sender      *string `json:"sender"`
	Destination string  `json:"destination"`
	Content     string  `json:"content"`
}

// Decode parses a raw frame received on the connection identified by origin
// and applies the validation rules in order, first failure wins. Every
// failure is a *FormatError suitable for echoing back to the client.
func Decode(raw []byte, origin string, identities Identities) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}, &FormatError{Reason: "Message must be valid JSON"}
	}
	if err := w.verify(origin, identities); err != nil {
		return Message{}, err
	}
	return Message{Type: w.Type, Sender: *w.Sender, Destination: w.Destination, Content: w.Content}, nil
}

func (m wireMessage) verify(origin string, identities Identities) error {
	if _, ok := knownTypes[m.Type]; !ok {
		return &FormatError{Reason: "Message must have msgtype and it must be valid"}
	}
	if m.Sender == nil {
		return &FormatError{Reason: "Message must have sender"}
	}
	if *m.Sender == "" {
		return &FormatError{Reason: "Sender must be at least 1 character long"}
	}
	if utf8.RuneCountInString(*m.Sender) > MaxSenderLen {
		return &FormatError{Reason: "Screennames should only be up to 64 characters long."}
	}
	// Only REGISTER may carry a name the server has not seen; everything
	// else must come from the connection the name was registered on.
	if m.Type != TypeRegister {
		conn, ok := identities.BoundTo(*m.Sender)
		if !ok {
			return &FormatError{Reason: fmt.Sprintf("The user %s doesn't exist.", *m.Sender)}
		}
		if conn != origin {
			return &FormatError{Reason: fmt.Sprintf("You're not %s! >:(", *m.Sender)}
		}
	}
	switch m.Type {
	case TypeJoin, TypeLeave, TypeMsg:
		if m.Destination == "" {
			return &FormatError{Reason: "JOIN, LEAVE, MSG messages must have a destination"}
		}
		if m.Destination[0] != UserPrefix && m.Destination[0] != RoomPrefix {
			return &FormatError{Reason: "Destination must be a @user or #chatroom."}
		}
	}
	if m.Type == TypeMsg && m.Content == "" {
		return &FormatError{Reason: "MSG must have content"}
	}
	return nil
}

// Encode serializes a message for the wire.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}
