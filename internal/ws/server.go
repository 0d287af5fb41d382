package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"venuehubgo/internal/auth"
)

const (
	maxMessageSize  = 4096
	dispatchTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	hub      *Hub
	router   *Router
	verifier auth.TokenVerifier
}

func NewWsServer(hub *Hub, verifier auth.TokenVerifier) *WsServer {
	srv := &WsServer{
		hub:      hub,
		router:   NewRouter(),
		verifier: verifier,
	}
	srv.registerHandlers() // ← all WS actions configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageSize)

	// ─────────────────── Client connected (unauthenticated) ───────────────
	c := s.hub.Register(rawConn)
	go s.reader(rawConn, c)
}

// ---------------------------------------------------------------------------
//  Reader loop
// ---------------------------------------------------------------------------

func (s *WsServer) reader(rawConn *websocket.Conn, c *Conn) {
	defer s.hub.Drop(c.ID(), "connection closed")

	_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))
	rawConn.SetPongHandler(func(string) error {
		c.touch()
		return rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}
		c.touch()
		_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			// Protocol error: reply and keep the connection open.
			zap.L().Warn("ws.malformed_envelope", zap.String("conn_id", c.ID()), zap.Error(err))
			s.hub.SendTo(c, newSystemEnvelope(systemError{Error: "malformed_envelope"}))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = s.router.dispatch(ctx, c, in)
		cancel()

		switch {
		case errors.Is(err, errUnknownAction):
			// No reply by design: unknown actions are logged and dropped.
			zap.L().Warn("ws.unknown_action",
				zap.String("conn_id", c.ID()),
				zap.String("action", string(in.Action)),
			)
		case err != nil:
			s.hub.SendTo(c, newSystemEnvelope(systemError{Error: err.Error()}))
		}
	}
}

// ---------------------------------------------------------------------------
//  Action handlers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, ActionAuthenticate, s.handleAuthenticate)
	Register(s.router, ActionJoinRoom, s.handleJoinRoom)
	Register(s.router, ActionLeaveRoom, s.handleLeaveRoom)
	Register(s.router, ActionSendMessage, s.handleSendMessage)
	Register(s.router, ActionSendNotification, s.handleSendNotification)
	Register(s.router, ActionVenueUpdate, s.handleVenueUpdate)
	Register(s.router, ActionPing, s.handlePing)
}

// handleAuthenticate flips the connection to authenticated on success.
// Failure is recoverable: the reply reports it and the socket stays open.
func (s *WsServer) handleAuthenticate(ctx context.Context, c *Conn, in Inbound, _ json.RawMessage) error {
	ident, err := s.verifier.Verify(ctx, in.Token)
	if err != nil {
		zap.L().Info("ws.auth_failed", zap.String("conn_id", c.ID()), zap.Error(err))
		s.hub.SendTo(c, newSystemEnvelope(authResult{
			Authenticated: false,
			Error:         authFailureToken(err),
		}))
		return nil
	}

	c.setIdentity(*ident)
	s.hub.SendTo(c, newSystemEnvelope(authResult{
		Authenticated: true,
		UserID:        ident.UserID,
		DisplayName:   ident.DisplayName,
		Role:          ident.Role,
	}))
	return nil
}

// authFailureToken keeps verifier internals off the wire.
func authFailureToken(err error) string {
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) {
		return err.Error()
	}
	return "verification_failed"
}

func (s *WsServer) handleJoinRoom(_ context.Context, c *Conn, in Inbound, _ json.RawMessage) error {
	if in.Room == "" {
		return errors.New("room_required")
	}

	added, err := s.hub.Join(c, in.Room)
	if err != nil {
		return err
	}
	s.hub.SendTo(c, newSystemEnvelope(systemAck{Event: "joined", Room: in.Room}))

	if added {
		if ident, ok := c.Identity(); ok {
			s.hub.BroadcastRoom(in.Room, NewUserStatusEnvelope(in.Room, ident.UserID, "joined"), c)
		}
	}
	return nil
}

func (s *WsServer) handleLeaveRoom(_ context.Context, c *Conn, in Inbound, _ json.RawMessage) error {
	if in.Room == "" {
		return errors.New("room_required")
	}
	if !s.hub.Leave(c, in.Room) {
		return errors.New("not_in_room")
	}
	s.hub.SendTo(c, newSystemEnvelope(systemAck{Event: "left", Room: in.Room}))

	if ident, ok := c.Identity(); ok {
		s.hub.BroadcastRoom(in.Room, NewUserStatusEnvelope(in.Room, ident.UserID, "left"), nil)
	}
	return nil
}

func (s *WsServer) handleSendMessage(_ context.Context, c *Conn, in Inbound, _ json.RawMessage) error {
	if !c.Authenticated() {
		return ErrAuthRequired
	}
	if in.Room == "" {
		return errors.New("room_required")
	}

	ident, _ := c.Identity()
	env := NewChatEnvelope(in.Room, ident.UserID, in.Data)
	s.hub.BroadcastRoom(in.Room, env, c) // sender excluded
	return nil
}

// handleSendNotification picks the addressing mode by priority:
// direct-to-user, then room, then global.
func (s *WsServer) handleSendNotification(_ context.Context, c *Conn, in Inbound, _ json.RawMessage) error {
	if !c.Authenticated() {
		return ErrAuthRequired
	}

	ident, _ := c.Identity()
	env := Envelope{
		Type:      TypeNotification,
		Data:      in.Data,
		Timestamp: time.Now().UTC(),
		UserID:    ident.UserID,
		Room:      in.Room,
	}

	switch {
	case in.TargetUserID != "":
		env.Room = ""
		s.hub.SendToUser(in.TargetUserID, env) // silent drop on miss
	case in.Room != "":
		s.hub.BroadcastRoom(in.Room, env, nil)
	default:
		s.hub.BroadcastGlobal(env, c)
	}
	return nil
}

// handleVenueUpdate has no auth gate; the intended caller is the trusted
// server-side path.
func (s *WsServer) handleVenueUpdate(_ context.Context, _ *Conn, _ Inbound, req VenueUpdateRequest) error {
	if req.VenueID <= 0 {
		return errors.New("venue_required")
	}
	env := NewVenueUpdateEnvelope(req.VenueID, req.Data)
	s.hub.BroadcastRoom(env.Room, env, nil)
	return nil
}

func (s *WsServer) handlePing(_ context.Context, c *Conn, _ Inbound, _ json.RawMessage) error {
	s.hub.SendTo(c, newSystemEnvelope(systemAck{Event: "pong"}))
	return nil
}
