package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuehubgo/internal/auth"
)

type fakeVerifier struct {
	identities map[string]auth.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if ident, ok := f.identities[token]; ok {
		return &ident, nil
	}
	return nil, auth.ErrInvalidToken
}

func newTestVerifier() *fakeVerifier {
	return &fakeVerifier{identities: map[string]auth.Identity{
		"tok-a": {UserID: "a-user", DisplayName: "Alice", Role: "user"},
		"tok-b": {UserID: "b-user", DisplayName: "Bob", Role: "user"},
	}}
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(8)
	srv := NewWsServer(hub, newTestVerifier())

	engine := gin.New()
	engine.GET("/ws", srv.Handle)
	ts := httptest.NewServer(engine)
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, hub
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(in Inbound) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(in))
}

func (c *wsClient) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// recvUntil reads frames until one of the wanted type arrives.
func (c *wsClient) recvUntil(typ EnvelopeType) Envelope {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(c.t, c.conn.SetReadDeadline(deadline))
	for {
		var env Envelope
		require.NoError(c.t, c.conn.ReadJSON(&env), "expected a %q envelope", typ)
		if env.Type == typ {
			return env
		}
	}
}

// assertNo fails if an envelope of the given type arrives within the window.
func (c *wsClient) assertNo(typ EnvelopeType, window time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(window))
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return // timeout: nothing arrived
		}
		assert.NotEqual(c.t, typ, env.Type, "unexpected %q envelope: %+v", typ, env)
		if env.Type == typ {
			return
		}
	}
}

func (c *wsClient) authenticate(token string) Envelope {
	c.t.Helper()
	c.send(Inbound{Action: ActionAuthenticate, Token: token})
	return c.recvUntil(TypeSystem)
}

func (c *wsClient) join(room string) {
	c.t.Helper()
	c.send(Inbound{Action: ActionJoinRoom, Room: room})
	env := c.recvUntil(TypeSystem)
	data := systemData(c.t, env)
	require.Equal(c.t, "joined", data["event"], "join ack expected, got %+v", env)
}

func systemData(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	data, ok := env.Data.(map[string]any)
	require.True(t, ok, "system envelope data must be an object: %+v", env)
	return data
}

func TestAuthenticateRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)
	client := dial(t, ts)

	env := client.authenticate("bogus")
	data := systemData(t, env)
	assert.Equal(t, false, data["authenticated"])
	assert.Equal(t, "invalid_token", data["error"])
	assert.NotContains(t, data, "userId")

	// Failure is recoverable: retry on the same connection.
	env = client.authenticate("tok-a")
	data = systemData(t, env)
	assert.Equal(t, true, data["authenticated"])
	assert.Equal(t, "a-user", data["userId"])
	assert.Equal(t, "Alice", data["displayName"])
}

func TestJoinRestrictedRoomRequiresAuth(t *testing.T) {
	ts, hub := newTestServer(t)
	client := dial(t, ts)

	client.send(Inbound{Action: ActionJoinRoom, Room: "venue_1"})
	env := client.recvUntil(TypeSystem)
	assert.Equal(t, "authentication_required", systemData(t, env)["error"])
	assert.Zero(t, hub.Stats().Rooms)

	client.join("public_lobby")
	assert.Equal(t, 1, hub.Stats().RoomMembers["public_lobby"])
}

func TestChatExclusion(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := dial(t, ts)
	bob := dial(t, ts)

	alice.authenticate("tok-a")
	bob.authenticate("tok-b")
	alice.join("venue_1")
	bob.join("venue_1")

	alice.send(Inbound{
		Action: ActionSendMessage,
		Room:   "venue_1",
		Data:   json.RawMessage(`{"message":"hello"}`),
	})

	env := bob.recvUntil(TypeChat)
	assert.Equal(t, "a-user", env.UserID)
	assert.Equal(t, "venue_1", env.Room)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", data["message"])

	alice.assertNo(TypeChat, 300*time.Millisecond)
}

func TestUnauthenticatedSendMessageRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	member := dial(t, ts)
	intruder := dial(t, ts)

	member.authenticate("tok-a")
	member.join("public_lobby")
	intruder.join("public_lobby")

	intruder.send(Inbound{
		Action: ActionSendMessage,
		Room:   "public_lobby",
		Data:   json.RawMessage(`{"message":"spam"}`),
	})

	env := intruder.recvUntil(TypeSystem)
	assert.Equal(t, "authentication_required", systemData(t, env)["error"])
	member.assertNo(TypeChat, 300*time.Millisecond)
}

func TestUserStatusOnJoinAndLeave(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := dial(t, ts)
	bob := dial(t, ts)

	alice.authenticate("tok-a")
	bob.authenticate("tok-b")
	alice.join("venue_1")
	bob.join("venue_1")

	env := alice.recvUntil(TypeUserStatus)
	assert.Equal(t, "b-user", env.UserID)
	assert.Equal(t, map[string]any{"status": "joined"}, env.Data)

	bob.send(Inbound{Action: ActionLeaveRoom, Room: "venue_1"})
	env = alice.recvUntil(TypeUserStatus)
	assert.Equal(t, "b-user", env.UserID)
	assert.Equal(t, map[string]any{"status": "left"}, env.Data)
}

func TestLeaveRoomWithoutMembership(t *testing.T) {
	ts, _ := newTestServer(t)
	client := dial(t, ts)
	client.authenticate("tok-a")

	client.send(Inbound{Action: ActionLeaveRoom, Room: "venue_1"})
	env := client.recvUntil(TypeSystem)
	assert.Equal(t, "not_in_room", systemData(t, env)["error"])
}

func TestVenueUpdateAction(t *testing.T) {
	ts, _ := newTestServer(t)
	watcher := dial(t, ts)
	producer := dial(t, ts)

	watcher.authenticate("tok-a")
	watcher.join("venue_5")

	producer.send(Inbound{
		Action: ActionVenueUpdate,
		Data:   json.RawMessage(`{"venueId":5,"data":{"crowdLevel":"high"}}`),
	})

	env := watcher.recvUntil(TypeVenueUpdate)
	assert.Equal(t, int64(5), env.VenueID)
	assert.Equal(t, "venue_5", env.Room)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "high", data["crowdLevel"])
}

func TestNotificationDirectBeatsRoom(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := dial(t, ts)
	bob := dial(t, ts)
	carol := dial(t, ts)

	alice.authenticate("tok-a")
	bob.authenticate("tok-b")
	carol.authenticate("tok-a") // second session, same room as bob
	bob.join("venue_1")
	carol.join("venue_1")

	// Both targetUserId and room set: direct addressing wins.
	alice.send(Inbound{
		Action:       ActionSendNotification,
		TargetUserID: "b-user",
		Room:         "venue_1",
		Data:         json.RawMessage(`{"title":"hi bob"}`),
	})

	env := bob.recvUntil(TypeNotification)
	assert.Equal(t, "a-user", env.UserID)
	carol.assertNo(TypeNotification, 300*time.Millisecond)
}

func TestPing(t *testing.T) {
	ts, _ := newTestServer(t)
	client := dial(t, ts)

	client.send(Inbound{Action: ActionPing})
	env := client.recvUntil(TypeSystem)
	assert.Equal(t, "pong", systemData(t, env)["event"])
}

func TestMalformedEnvelopeKeepsConnectionOpen(t *testing.T) {
	ts, _ := newTestServer(t)
	client := dial(t, ts)

	client.sendRaw("this is not json")
	env := client.recvUntil(TypeSystem)
	assert.Equal(t, "malformed_envelope", systemData(t, env)["error"])

	// Still usable afterwards.
	client.send(Inbound{Action: ActionPing})
	env = client.recvUntil(TypeSystem)
	assert.Equal(t, "pong", systemData(t, env)["event"])
}

func TestUnknownActionIsIgnored(t *testing.T) {
	ts, _ := newTestServer(t)
	client := dial(t, ts)

	client.sendRaw(`{"action":"self_destruct"}`)

	// Replies are ordered per connection: the very next frame being the pong
	// proves the unknown action produced no reply at all.
	client.send(Inbound{Action: ActionPing})
	env := client.recvUntil(TypeSystem)
	assert.Equal(t, "pong", systemData(t, env)["event"])
}
