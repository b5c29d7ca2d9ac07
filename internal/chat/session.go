package chat

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/chatwire/chatwire/internal/protocol"
)

// ErrNameTaken is returned by Register when the requested name is already
// claimed by a live session. It maps to a REGFAILED reply, not an ERROR.
var ErrNameTaken = errors.New("name already taken")

// Session binds one claimed display name to one connection for the
// lifetime of that connection. The binding never changes.
type Session struct {
	Name string
	peer Peer
}

// ConnID returns the handle of the connection this session is bound to.
func (s *Session) ConnID() string { return s.peer.ConnID() }

// Send forwards a frame to the session's client.
func (s *Session) Send(m protocol.Message) { s.peer.Send(m) }

// Sessions is the process-wide registry of claimed names. All methods are
// safe for concurrent use; Register is atomic, so two concurrent claims of
// the same name can never both succeed.
type Sessions struct {
	mu     sync.RWMutex
	byName map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{byName: make(map[string]*Session)}
}

// Register claims name for the connection behind peer. It fails with
// ErrNameTaken when a live session already holds the name, leaving the
// existing binding untouched.
func (r *Sessions) Register(name string, peer Peer) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, ErrNameTaken
	}
	s := &Session{Name: name, peer: peer}
	r.byName[name] = s
	return s, nil
}

// Lookup returns the live session holding name, if any.
func (r *Sessions) Lookup(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	return s, ok
}

// BoundTo implements protocol.Identities.
func (r *Sessions) BoundTo(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	if !ok {
		return "", false
	}
	return s.ConnID(), true
}

// RemoveByConn evicts every session bound to the given connection handle
// and returns them so the caller can sweep their room memberships. A
// connection may have claimed more than one name. Idempotent: a second
// call for the same handle returns nothing.
func (r *Sessions) RemoveByConn(conn string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for name, s := range r.byName {
		if s.ConnID() == conn {
			delete(r.byName, name)
			removed = append(removed, s)
		}
	}
	return removed
}
