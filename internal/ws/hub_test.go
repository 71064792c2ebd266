package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

type participants map[uuid.UUID][]uuid.UUID

func (p participants) AuthorizeChat(_ context.Context, reportID, userID uuid.UUID) error {
	users, ok := p[reportID]
	if !ok {
		return apperror.ErrReportNotFound
	}
	for _, u := range users {
		if u == userID {
			return nil
		}
	}
	return apperror.New(apperror.ErrCodeForbidden, "вы не участник этой заявки")
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T, chat ChatAuthorizer) *Hub {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHub(chat, log)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func connect(h *Hub, userID uuid.UUID) *Client {
	c := NewClient(nil, h, userID)
	h.Register(c)
	return c
}

func next(t *testing.T, c *Client) envelope {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "client was disconnected")
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return envelope{}
	}
}

func nothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected message %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UserRoomAndBroadcast(t *testing.T) {
	h := startHub(t, nil)
	alice, bob := uuid.New(), uuid.New()
	a := connect(h, alice)
	b := connect(h, bob)

	h.EmitToUser(alice, "newQuotation", map[string]string{"reportId": "r1"})
	env := next(t, a)
	assert.Equal(t, "newQuotation", env.Type)
	assert.JSONEq(t, `{"reportId":"r1"}`, string(env.Data))
	nothing(t, b)

	h.BroadcastAll("newReport", map[string]string{"title": "Ford Focus"})
	assert.Equal(t, "newReport", next(t, a).Type)
	assert.Equal(t, "newReport", next(t, b).Type)

	assert.Equal(t, 2, h.Clients())
	assert.Equal(t, 1, h.RoomSize(UserRoom(alice)))
}

func TestHub_RoomOrderingMatchesEmission(t *testing.T) {
	h := startHub(t, nil)
	c := connect(h, uuid.New())
	room := ReportRoom(uuid.New())
	h.Join(room, c)

	for i := 0; i < 20; i++ {
		h.Emit(room, "tick", i)
	}
	for i := 0; i < 20; i++ {
		env := next(t, c)
		assert.Equal(t, fmt.Sprint(i), string(env.Data))
	}

	h.Leave(room, c)
	h.Emit(room, "tick", 99)
	nothing(t, c)
}

func TestHub_UnregisterAndSlowClient(t *testing.T) {
	h := startHub(t, nil)
	user := uuid.New()
	slow := connect(h, user)
	fast := connect(h, user)

	// буфер slow переполняется, fast вычитывается
	for i := 0; i < sendBuffer+1; i++ {
		h.EmitToUser(user, "tick", i)
		next(t, fast)
	}

	assert.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)
	for range slow.send {
	}

	h.Unregister(fast)
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-fast.send
	assert.False(t, ok)
}

func TestChat_ParticipantsExchangeMessages(t *testing.T) {
	reportID := uuid.New()
	owner, specialist, stranger := uuid.New(), uuid.New(), uuid.New()
	h := startHub(t, participants{reportID: {owner, specialist}})

	o := connect(h, owner)
	s := connect(h, specialist)
	x := connect(h, stranger)

	join := fmt.Sprintf(`{"type":"joinRoom","data":{"reportId":%q}}`, reportID)
	h.HandleInbound(context.Background(), o, []byte(join))
	h.HandleInbound(context.Background(), s, []byte(join))
	assert.Equal(t, EventJoined, next(t, o).Type)
	assert.Equal(t, EventJoined, next(t, s).Type)

	h.HandleInbound(context.Background(), x, []byte(join))
	env := next(t, x)
	assert.Equal(t, EventError, env.Type)
	assert.Contains(t, string(env.Data), "не участник")
	assert.Equal(t, 2, h.RoomSize(ReportRoom(reportID)))

	// senderId в теле игнорируется
	send := fmt.Sprintf(`{"type":"sendMessage","data":{"reportId":%q,"message":"  on my way  ","senderId":%q}}`, reportID, stranger)
	h.HandleInbound(context.Background(), s, []byte(send))

	for _, c := range []*Client{o, s} {
		env := next(t, c)
		require.Equal(t, EventMessage, env.Type)
		var msg ChatMessage
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, specialist, msg.SenderID)
		assert.Equal(t, "on my way", msg.Message)
		assert.False(t, msg.Timestamp.IsZero())
	}

	h.HandleInbound(context.Background(), x, []byte(send))
	assert.Equal(t, EventError, next(t, x).Type)
	nothing(t, o)
}

func TestChat_InvalidInbound(t *testing.T) {
	reportID := uuid.New()
	user := uuid.New()
	h := startHub(t, participants{reportID: {user}})
	c := connect(h, user)

	cases := map[string]string{
		"not json":       `{oops`,
		"unknown type":   `{"type":"dance","data":{}}`,
		"missing data":   `{"type":"joinRoom"}`,
		"bad report id":  `{"type":"joinRoom","data":{"reportId":"42"}}`,
		"empty message":  fmt.Sprintf(`{"type":"sendMessage","data":{"reportId":%q,"message":"   "}}`, reportID),
		"long message":   fmt.Sprintf(`{"type":"sendMessage","data":{"reportId":%q,"message":%q}}`, reportID, strings.Repeat("я", MaxChatMessageLength+1)),
		"unknown report": fmt.Sprintf(`{"type":"joinRoom","data":{"reportId":%q}}`, uuid.New()),
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			h.HandleInbound(context.Background(), c, []byte(raw))
			assert.Equal(t, EventError, next(t, c).Type)
		})
	}

	exact := fmt.Sprintf(`{"type":"sendMessage","data":{"reportId":%q,"message":%q}}`, reportID, strings.Repeat("я", MaxChatMessageLength))
	h.HandleInbound(context.Background(), c, []byte(exact))
	nothing(t, c) // не в комнате, но ошибки нет
}

func TestChat_NoAuthorizerRejects(t *testing.T) {
	h := startHub(t, nil)
	c := connect(h, uuid.New())

	h.HandleInbound(context.Background(), c, []byte(fmt.Sprintf(`{"type":"joinRoom","data":{"reportId":%q}}`, uuid.New())))
	env := next(t, c)
	assert.Equal(t, EventError, env.Type)
	assert.Contains(t, string(env.Data), errChatUnavailable.Error())
}

func TestChat_LeaveRoom(t *testing.T) {
	reportID := uuid.New()
	owner, specialist := uuid.New(), uuid.New()
	h := startHub(t, participants{reportID: {owner, specialist}})
	o := connect(h, owner)
	s := connect(h, specialist)

	join := fmt.Sprintf(`{"type":"joinRoom","data":{"reportId":%q}}`, reportID)
	h.HandleInbound(context.Background(), o, []byte(join))
	h.HandleInbound(context.Background(), s, []byte(join))
	next(t, o)
	next(t, s)

	h.HandleInbound(context.Background(), o, []byte(fmt.Sprintf(`{"type":"leaveRoom","data":{"reportId":%q}}`, reportID)))
	env := next(t, o)
	assert.Equal(t, EventLeft, env.Type)
	assert.JSONEq(t, fmt.Sprintf(`{"reportId":%q}`, reportID), string(env.Data))
	assert.Eventually(t, func() bool { return h.RoomSize(ReportRoom(reportID)) == 1 }, time.Second, 10*time.Millisecond)

	h.HandleInbound(context.Background(), s, []byte(fmt.Sprintf(`{"type":"sendMessage","data":{"reportId":%q,"message":"hello"}}`, reportID)))
	assert.Equal(t, EventMessage, next(t, s).Type)
	nothing(t, o)

	// личную комнату покинуть нельзя
	h.Leave(UserRoom(owner), o)
	h.EmitToUser(owner, "newQuotation", map[string]string{"reportId": reportID.String()})
	assert.Equal(t, "newQuotation", next(t, o).Type)
}
