package chat

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/chatwire/chatwire/internal/protocol"
)

// Room is a named broadcast group. A room exists exactly while it has
// members: it is created on first join and deleted the moment its member
// set becomes empty.
type Room struct {
	name    string
	members map[string]*Session
}

func (r *Room) snapshot() []*Session {
	return lo.Values(r.members)
}

// others returns every member except the named one.
func (r *Room) others(name string) []*Session {
	members := make([]*Session, 0, len(r.members))
	for n, s := range r.members {
		if n != name {
			members = append(members, s)
		}
	}
	return members
}

// roster returns the sorted, ", "-joined member name list.
func (r *Room) roster() string {
	names := lo.Keys(r.members)
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// delivery is a fan-out computed under the registry lock and delivered
// after it is released. Each send is independently fire and forget.
type delivery struct {
	msg protocol.Message
	to  []*Session
}

func (d delivery) deliver() {
	for _, s := range d.to {
		s.Send(d.msg)
	}
}

func notice(room, sender, what string) protocol.Message {
	return protocol.Message{
		Type:        protocol.TypeNotice,
		Sender:      sender,
		Destination: "#" + room,
		Content:     what,
	}
}

// Rooms is the process-wide room registry. One mutex covers room
// creation, deletion, and member mutation, so every membership operation
// and its recipient-list computation is a single atomic step. Actual
// delivery happens outside the lock.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]*Room)}
}

// Join adds s to the named room, creating the room if needed. Members
// present before the join receive a NOTICE; s alone receives a JOINED
// reply listing the membership after the join, itself included.
func (r *Rooms) Join(name string, s *Session) {
	r.mu.Lock()
	room, ok := r.rooms[name]
	if !ok {
		room = &Room{name: name, members: make(map[string]*Session)}
		r.rooms[name] = room
	}
	prior := room.others(s.Name)
	room.members[s.Name] = s
	joined := protocol.Message{
		Type:        protocol.TypeJoined,
		Sender:      protocol.SenderServer,
		Destination: "#" + name,
		Content:     room.roster(),
	}
	r.mu.Unlock()

	delivery{msg: notice(name, s.Name, "join"), to: prior}.deliver()
	s.Send(joined)
}

// Leave removes s from the named room and notifies the remaining members.
// Unknown rooms are a silent no-op, and the leaver gets no reply. An
// emptied room is deleted before the lock is released.
func (r *Rooms) Leave(name string, s *Session) {
	r.mu.Lock()
	room, ok := r.rooms[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	// Only an actual member leaves. The stored session must be this very
	// one: after a disconnect the name may already belong to a fresh
	// session, whose membership must not be touched.
	if member, in := room.members[s.Name]; !in || member != s {
		r.mu.Unlock()
		return
	}
	delete(room.members, s.Name)
	remaining := room.snapshot()
	if len(room.members) == 0 {
		delete(r.rooms, name)
	}
	r.mu.Unlock()

	delivery{msg: notice(name, s.Name, "leave"), to: remaining}.deliver()
}

// Broadcast forwards msg verbatim to every member of the named room except
// msg.Sender. An unknown room yields a RoutingError.
func (r *Rooms) Broadcast(name string, msg protocol.Message) error {
	r.mu.Lock()
	room, ok := r.rooms[name]
	if !ok {
		r.mu.Unlock()
		return &protocol.RoutingError{
			Reason: fmt.Sprintf("The channel '%s' does not exist.", msg.Destination),
		}
	}
	recipients := room.others(msg.Sender)
	r.mu.Unlock()

	delivery{msg: msg, to: recipients}.deliver()
	return nil
}

// Names returns the #-prefixed names of all live rooms, sorted.
func (r *Rooms) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := lo.Map(lo.Keys(r.rooms), func(name string, _ int) string {
		return "#" + name
	})
	sort.Strings(names)
	return names
}

// RemoveSession sweeps s out of every room it belongs to, applying the
// same side effects as an explicit leave per room: a NOTICE to the
// remaining members and deletion of any room left empty. Called when the
// session's connection closes.
func (r *Rooms) RemoveSession(s *Session) {
	r.mu.Lock()
	var fanouts []delivery
	for name, room := range r.rooms {
		// Match on the session instance, not the name: between the
		// registry eviction and this sweep another connection may have
		// re-registered the freed name and joined rooms of its own.
		if member, in := room.members[s.Name]; !in || member != s {
			continue
		}
		delete(room.members, s.Name)
		fanouts = append(fanouts, delivery{msg: notice(name, s.Name, "leave"), to: room.snapshot()})
		if len(room.members) == 0 {
			delete(r.rooms, name)
		}
	}
	r.mu.Unlock()

	for _, f := range fanouts {
		f.deliver()
	}
}
