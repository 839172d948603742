package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"term-chatroom/auth"
	"term-chatroom/internal/logs"
	"term-chatroom/observability"
	"term-chatroom/runtime"
	"term-chatroom/services"
)

const testFrameTimeout = 2 * time.Second

type wsFixture struct {
	server *httptest.Server
	tokens *auth.TokenManager
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	log := logs.GetLoggerFromString("error")
	engine := runtime.NewRoomEngine(log, 50, nil, observability.NewChatMetrics())
	tokens := auth.NewTokenManager("handler-test-secret", time.Hour)
	handler := NewHandler(log, services.NewChatService(engine), tokens, 16, time.Second)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &wsFixture{server: server, tokens: tokens}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *wsFixture) token(t *testing.T, username string) string {
	t.Helper()
	token, err := f.tokens.Generate(username, username, []string{"user"})
	require.NoError(t, err)
	return token
}

// join sends a join frame and returns the history payload acknowledging it.
func (f *wsFixture) join(t *testing.T, conn *websocket.Conn, username string) HistoryPayload {
	t.Helper()
	writeFrame(t, conn, EventJoin, JoinRequest{Username: username, Token: f.token(t, username)})

	envelope := readFrame(t, conn)
	require.Equal(t, EventMessageHistory, envelope.Type)

	var history HistoryPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &history))
	return history
}

func writeFrame(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	data, err := EncodeFrame(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readFrame(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testFrameTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(data, &envelope))
	return envelope
}

func TestHandler_JoinEmptyRoom(t *testing.T) {
	// Given an empty room
	fixture := newWSFixture(t)
	conn := fixture.dial(t)

	// When the first user joins
	history := fixture.join(t, conn, "alice")

	// Then the history acknowledgment is empty
	require.Empty(t, history.Messages)
}

func TestHandler_JoinRejectsForgedToken(t *testing.T) {
	// Given a token signed with a different secret
	fixture := newWSFixture(t)
	foreign := auth.NewTokenManager("other-secret", time.Hour)
	token, err := foreign.Generate("alice", "alice", nil)
	require.NoError(t, err)

	conn := fixture.dial(t)

	// When joining with it
	writeFrame(t, conn, EventJoin, JoinRequest{Username: "alice", Token: token})

	// Then the join is answered with an error frame
	envelope := readFrame(t, conn)
	require.Equal(t, EventError, envelope.Type)
}

func TestHandler_JoinRejectsTokenForOtherUser(t *testing.T) {
	// Given a valid token issued to bob
	fixture := newWSFixture(t)
	conn := fixture.dial(t)

	// When alice tries to join with bob's token
	writeFrame(t, conn, EventJoin, JoinRequest{Username: "alice", Token: fixture.token(t, "bob")})

	// Then the join is refused
	envelope := readFrame(t, conn)
	require.Equal(t, EventError, envelope.Type)
}

func TestHandler_SendBroadcastsToEveryoneIncludingSender(t *testing.T) {
	// Given alice and bob in the room
	fixture := newWSFixture(t)
	alice := fixture.dial(t)
	fixture.join(t, alice, "alice")

	bob := fixture.dial(t)
	fixture.join(t, bob, "bob")

	// alice sees bob arrive
	arrival := readFrame(t, alice)
	require.Equal(t, EventUserJoined, arrival.Type)

	// When alice sends a message
	writeFrame(t, alice, EventSendMessage, SendMessageRequest{Content: "hello"})

	// Then both alice and bob receive it with the same sequence
	for _, conn := range []*websocket.Conn{alice, bob} {
		envelope := readFrame(t, conn)
		require.Equal(t, EventNewMessage, envelope.Type)

		var message MessagePayload
		require.NoError(t, json.Unmarshal(envelope.Payload, &message))
		require.Equal(t, uint64(1), message.Sequence)
		require.Equal(t, "alice", message.Sender)
		require.Equal(t, "hello", message.Content)
	}
}

func TestHandler_LateJoinerReceivesHistory(t *testing.T) {
	// Given alice already posted two messages
	fixture := newWSFixture(t)
	alice := fixture.dial(t)
	fixture.join(t, alice, "alice")
	writeFrame(t, alice, EventSendMessage, SendMessageRequest{Content: "first"})
	writeFrame(t, alice, EventSendMessage, SendMessageRequest{Content: "second"})
	readFrame(t, alice)
	readFrame(t, alice)

	// When bob joins afterwards
	bob := fixture.dial(t)
	history := fixture.join(t, bob, "bob")

	// Then bob's acknowledgment replays both messages oldest first
	require.Len(t, history.Messages, 2)
	require.Equal(t, "first", history.Messages[0].Content)
	require.Equal(t, "second", history.Messages[1].Content)

	// And alice is told about bob, not bob himself
	arrival := readFrame(t, alice)
	require.Equal(t, EventUserJoined, arrival.Type)

	var presence PresencePayload
	require.NoError(t, json.Unmarshal(arrival.Payload, &presence))
	require.Equal(t, "bob", presence.Username)
}

func TestHandler_OnlineUsersInJoinOrder(t *testing.T) {
	// Given alice then bob in the room
	fixture := newWSFixture(t)
	alice := fixture.dial(t)
	fixture.join(t, alice, "alice")
	bob := fixture.dial(t)
	fixture.join(t, bob, "bob")

	// When bob asks for the online users
	writeFrame(t, bob, EventGetOnlineUsers, GetOnlineUsersRequest{})

	// Then the directory lists members in join order
	envelope := readFrame(t, bob)
	require.Equal(t, EventOnlineUsers, envelope.Type)

	var online OnlineUsersPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &online))
	require.Equal(t, []string{"alice", "bob"}, online.Users)
}

func TestHandler_DisconnectBroadcastsUserLeft(t *testing.T) {
	// Given alice and bob in the room
	fixture := newWSFixture(t)
	alice := fixture.dial(t)
	fixture.join(t, alice, "alice")
	bob := fixture.dial(t)
	fixture.join(t, bob, "bob")
	readFrame(t, alice) // bob's arrival

	// When bob's socket closes
	require.NoError(t, bob.Close())

	// Then alice is told exactly once that bob left
	departure := readFrame(t, alice)
	require.Equal(t, EventUserLeft, departure.Type)

	var presence PresencePayload
	require.NoError(t, json.Unmarshal(departure.Payload, &presence))
	require.Equal(t, "bob", presence.Username)
}

func TestHandler_SendBeforeJoinIsRefused(t *testing.T) {
	// Given a connection that never joined
	fixture := newWSFixture(t)
	conn := fixture.dial(t)

	// When it tries to send
	writeFrame(t, conn, EventSendMessage, SendMessageRequest{Content: "hi"})

	// Then it gets an error frame and no message exists
	envelope := readFrame(t, conn)
	require.Equal(t, EventError, envelope.Type)
}

func TestHandler_DuplicateUsernameRefused(t *testing.T) {
	// Given alice already in the room
	fixture := newWSFixture(t)
	first := fixture.dial(t)
	fixture.join(t, first, "alice")

	// When a second connection joins as alice
	second := fixture.dial(t)
	writeFrame(t, second, EventJoin, JoinRequest{Username: "alice", Token: fixture.token(t, "alice")})

	// Then the second join is refused and the first stays untouched
	envelope := readFrame(t, second)
	require.Equal(t, EventError, envelope.Type)

	writeFrame(t, first, EventSendMessage, SendMessageRequest{Content: "still here"})
	echo := readFrame(t, first)
	require.Equal(t, EventNewMessage, echo.Type)
}

func TestHandler_EmptyContentRefusedWithoutSequence(t *testing.T) {
	// Given alice in the room
	fixture := newWSFixture(t)
	alice := fixture.dial(t)
	fixture.join(t, alice, "alice")

	// When she sends whitespace only
	writeFrame(t, alice, EventSendMessage, SendMessageRequest{Content: "   "})

	// Then she gets an error frame
	envelope := readFrame(t, alice)
	require.Equal(t, EventError, envelope.Type)

	// And the next real message still takes sequence 1
	writeFrame(t, alice, EventSendMessage, SendMessageRequest{Content: "real"})
	echo := readFrame(t, alice)
	require.Equal(t, EventNewMessage, echo.Type)

	var message MessagePayload
	require.NoError(t, json.Unmarshal(echo.Payload, &message))
	require.Equal(t, uint64(1), message.Sequence)
}
