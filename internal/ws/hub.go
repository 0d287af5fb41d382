package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrAuthRequired = errors.New("authentication_required")

// Hub owns the connection registry and the room index. Both live behind a
// single mutex so join/leave/evict and broadcast enumeration never observe
// a half-applied state; the actual socket I/O always happens outside it.
type Hub struct {
	mu        sync.RWMutex
	reg       registry
	rooms     roomIndex
	policy    RoomPolicy
	queueSize int
}

func NewHub(queueSize int) *Hub {
	return &Hub{
		reg:       newRegistry(),
		rooms:     newRoomIndex(),
		policy:    PrefixRoomPolicy,
		queueSize: queueSize,
	}
}

// SetRoomPolicy replaces the default prefix-based access policy.
// Call before the hub starts serving connections.
func (h *Hub) SetRoomPolicy(p RoomPolicy) { h.policy = p }

// Register wraps the accepted transport in a Conn and adds it to the
// registry. The id is unique for the process lifetime.
func (h *Hub) Register(tr transport) *Conn {
	c := newConn(uuid.NewString(), tr, h.queueSize, func(failed *Conn) {
		h.Drop(failed.id, "write failed")
	})

	h.mu.Lock()
	h.reg.add(c)
	h.mu.Unlock()

	zap.L().Debug("hub.register", zap.String("conn_id", c.id))
	return c
}

// Drop is the single removal path: explicit close, transport error, send
// failure and liveness timeout all land here. Idempotent.
func (h *Hub) Drop(id string, reason string) {
	h.mu.Lock()
	c, ok := h.reg.remove(id)
	var left []string
	if ok {
		left = h.rooms.leaveAll(c)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	c.close(reason)
	zap.L().Debug("hub.drop",
		zap.String("conn_id", id),
		zap.String("reason", reason),
		zap.Strings("rooms", left),
	)
}

func (h *Hub) Get(id string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reg.get(id)
}

// Join adds the connection to a room, enforcing the room's access policy.
// Reports whether a new membership was created.
func (h *Hub) Join(c *Conn, room string) (bool, error) {
	if h.policy(room) == RoomAuthenticated && !c.Authenticated() {
		return false, ErrAuthRequired
	}

	h.mu.Lock()
	added := h.rooms.join(c, room)
	h.mu.Unlock()
	return added, nil
}

// Leave reports whether a membership was removed.
func (h *Hub) Leave(c *Conn, room string) bool {
	h.mu.Lock()
	removed := h.rooms.leave(c, room)
	h.mu.Unlock()
	return removed
}

// SendTo delivers one envelope to a single connection.
func (h *Hub) SendTo(c *Conn, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		zap.L().Error("hub.marshal", zap.Error(err))
		return
	}
	h.deliver([]*Conn{c}, payload)
}

// SendToUser delivers to the first registered connection whose identity
// matches userID. A miss is a silent drop.
func (h *Hub) SendToUser(userID string, env Envelope) bool {
	var target *Conn
	h.mu.RLock()
	h.reg.forEach(func(c *Conn) {
		if target != nil {
			return
		}
		if ident, ok := c.Identity(); ok && ident.UserID == userID {
			target = c
		}
	})
	h.mu.RUnlock()

	if target == nil {
		return false
	}
	h.SendTo(target, env)
	return true
}

// BroadcastRoom fans the envelope out to every member of the room, minus
// exclude. Returns the number of attempted deliveries.
func (h *Hub) BroadcastRoom(room string, env Envelope, exclude *Conn) int {
	h.mu.RLock()
	targets := h.rooms.members(room)
	h.mu.RUnlock()
	return h.fanOut(targets, env, exclude)
}

// BroadcastGlobal fans the envelope out to every registered connection,
// minus exclude.
func (h *Hub) BroadcastGlobal(env Envelope, exclude *Conn) int {
	var targets []*Conn
	h.mu.RLock()
	h.reg.forEach(func(c *Conn) { targets = append(targets, c) })
	h.mu.RUnlock()
	return h.fanOut(targets, env, exclude)
}

func (h *Hub) fanOut(targets []*Conn, env Envelope, exclude *Conn) int {
	// Serialise once per fan-out, not per target.
	payload, err := json.Marshal(env)
	if err != nil {
		zap.L().Error("hub.marshal", zap.Error(err))
		return 0
	}

	filtered := targets[:0]
	for _, c := range targets {
		if c != exclude {
			filtered = append(filtered, c)
		}
	}
	return h.deliver(filtered, payload)
}

// deliver attempts each send independently; a failed peer is evicted on the
// spot and the rest of the fan-out continues.
func (h *Hub) deliver(targets []*Conn, payload []byte) int {
	var failed []*Conn
	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.Drop(c.id, "send failed")
	}
	return len(targets) - len(failed)
}

// Stats is the observability snapshot exposed by the publish API.
type Stats struct {
	Connections int            `json:"connections"`
	Rooms       int            `json:"rooms"`
	RoomMembers map[string]int `json:"room_members"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Connections: h.reg.len(),
		Rooms:       h.rooms.len(),
		RoomMembers: h.rooms.counts(),
	}
}

// Close drops every connection; used on shutdown.
func (h *Hub) Close() {
	var ids []string
	h.mu.RLock()
	h.reg.forEach(func(c *Conn) { ids = append(ids, c.id) })
	h.mu.RUnlock()

	for _, id := range ids {
		h.Drop(id, "server shutting down")
	}
}
