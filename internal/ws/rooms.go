package ws

import "strings"

// PublicRoomPrefix marks rooms joinable without authentication.
// Exact prefix match only; "Public_" and friends count as restricted.
const PublicRoomPrefix = "public_"

// RoomAccess is the per-room access policy.
type RoomAccess int

const (
	RoomOpen RoomAccess = iota
	RoomAuthenticated
)

// RoomPolicy decides the access level of a room by name.
type RoomPolicy func(room string) RoomAccess

// PrefixRoomPolicy is the default policy: "public_" rooms are open,
// everything else requires authentication.
func PrefixRoomPolicy(room string) RoomAccess {
	if strings.HasPrefix(room, PublicRoomPrefix) {
		return RoomOpen
	}
	return RoomAuthenticated
}

// roomIndex maps room name -> member set. Rooms are created on first join
// and deleted when the last member leaves, so an existing room always has
// at least one member. Membership is mirrored on Conn.rooms in the same
// critical section. Every method is called with the Hub mutex held.
type roomIndex struct {
	rooms map[string]map[string]*Conn
}

func newRoomIndex() roomIndex {
	return roomIndex{rooms: make(map[string]map[string]*Conn)}
}

// join reports whether the connection was newly added. Idempotent.
func (ri *roomIndex) join(c *Conn, room string) bool {
	members, ok := ri.rooms[room]
	if !ok {
		members = make(map[string]*Conn)
		ri.rooms[room] = members
	}
	if _, ok := members[c.id]; ok {
		return false
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
	return true
}

// leave reports whether a membership was removed.
func (ri *roomIndex) leave(c *Conn, room string) bool {
	members, ok := ri.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[c.id]; !ok {
		return false
	}
	delete(members, c.id)
	delete(c.rooms, room)
	if len(members) == 0 {
		delete(ri.rooms, room)
	}
	return true
}

// leaveAll detaches the connection from every room it had joined and
// returns the rooms it left. The only path a connection disappears from
// the index by.
func (ri *roomIndex) leaveAll(c *Conn) []string {
	left := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		if ri.leave(c, room) {
			left = append(left, room)
		}
	}
	return left
}

// members returns a snapshot of the room's member set.
func (ri *roomIndex) members(room string) []*Conn {
	set, ok := ri.rooms[room]
	if !ok {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (ri *roomIndex) contains(room string) bool {
	_, ok := ri.rooms[room]
	return ok
}

func (ri *roomIndex) counts() map[string]int {
	out := make(map[string]int, len(ri.rooms))
	for room, set := range ri.rooms {
		out[room] = len(set)
	}
	return out
}

func (ri *roomIndex) len() int {
	return len(ri.rooms)
}
