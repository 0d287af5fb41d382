package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action discriminates inbound frames. Dispatch is exhaustive over this set;
// anything else is logged and dropped without a reply.
type Action string

const (
	ActionAuthenticate     Action = "authenticate"
	ActionJoinRoom         Action = "join_room"
	ActionLeaveRoom        Action = "leave_room"
	ActionSendMessage      Action = "send_message"
	ActionSendNotification Action = "send_notification"
	ActionVenueUpdate      Action = "venue_update"
	ActionPing             Action = "ping"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAuthenticate, ActionJoinRoom, ActionLeaveRoom,
		ActionSendMessage, ActionSendNotification, ActionVenueUpdate, ActionPing:
		return true
	}
	return false
}

// Inbound is the client -> hub frame.
type Inbound struct {
	Action       Action          `json:"action"`
	Room         string          `json:"room,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	Token        string          `json:"token,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// EnvelopeType discriminates hub -> client frames.
type EnvelopeType string

const (
	TypeNotification EnvelopeType = "notification"
	TypeChat         EnvelopeType = "chat"
	TypeVenueUpdate  EnvelopeType = "venue_update"
	TypeUserStatus   EnvelopeType = "user_status"
	TypeSystem       EnvelopeType = "system"
)

// Envelope is the hub -> client frame. Envelopes are immutable values; the
// broadcaster constructs one per logical event and serialises it once per
// fan-out.
type Envelope struct {
	Type      EnvelopeType `json:"type"`
	Data      any          `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
	UserID    string       `json:"userId,omitempty"`
	VenueID   int64        `json:"venueId,omitempty"`
	Room      string       `json:"room,omitempty"`
}

func NewNotificationEnvelope(payload any) Envelope {
	return Envelope{Type: TypeNotification, Data: payload, Timestamp: time.Now().UTC()}
}

func NewRoomNotificationEnvelope(room string, payload any) Envelope {
	return Envelope{Type: TypeNotification, Data: payload, Timestamp: time.Now().UTC(), Room: room}
}

func NewChatEnvelope(room, userID string, payload any) Envelope {
	return Envelope{Type: TypeChat, Data: payload, Timestamp: time.Now().UTC(), UserID: userID, Room: room}
}

func NewVenueUpdateEnvelope(venueID int64, payload any) Envelope {
	return Envelope{
		Type:      TypeVenueUpdate,
		Data:      payload,
		Timestamp: time.Now().UTC(),
		VenueID:   venueID,
		Room:      VenueRoom(venueID),
	}
}

func NewUserStatusEnvelope(room, userID, status string) Envelope {
	return Envelope{
		Type:      TypeUserStatus,
		Data:      map[string]string{"status": status},
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Room:      room,
	}
}

func newSystemEnvelope(payload any) Envelope {
	return Envelope{Type: TypeSystem, Data: payload, Timestamp: time.Now().UTC()}
}

// VenueRoom is the per-venue room every venue_update fans out to.
func VenueRoom(venueID int64) string {
	return fmt.Sprintf("venue_%d", venueID)
}

// ──────────────────────────── Request / system DTOs ──────────────────────────

// VenueUpdateRequest is the data payload for "venue_update".
type VenueUpdateRequest struct {
	VenueID int64           `json:"venueId" validate:"required,gt=0"`
	Data    json.RawMessage `json:"data"`
}

type systemAck struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
}

type systemError struct {
	Error string `json:"error"`
}

type authResult struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Role          string `json:"role,omitempty"`
	Error         string `json:"error,omitempty"`
}
