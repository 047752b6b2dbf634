package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(id string) *Client {
	return &Client{ID: id, send: make(chan WSMessage, 16)}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHubAddressingModes(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), nil, nil)
	a := newTestClient("sock-a")
	b := newTestClient("sock-b")
	c := newTestClient("sock-c")
	for _, cl := range []*Client{a, b, c} {
		hub.Register(cl)
	}
	hub.JoinRoom("sock-a", "poll:1")
	hub.JoinRoom("sock-b", "poll:1")
	hub.JoinRoom("sock-c", WaitingRoom)

	hub.BroadcastAll("poll:started", map[string]string{"pollId": "1"})
	hub.BroadcastToRoom("poll:1", "poll:update_results", map[string]int{"votes": 1})
	hub.SendToClient("sock-c", "error", map[string]string{"message": "nope"})

	aMsgs, bMsgs, cMsgs := drain(a), drain(b), drain(c)

	require.Len(t, aMsgs, 2, "room member gets global plus room events")
	require.Len(t, bMsgs, 2)
	require.Len(t, cMsgs, 2, "non-member gets global plus its private event")
	assert.Equal(t, "poll:started", cMsgs[0].Event)
	assert.Equal(t, "error", cMsgs[1].Event)
	assert.Equal(t, "poll:update_results", aMsgs[1].Event)
}

func TestJoinRoomMovesMembership(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), nil, nil)
	a := newTestClient("sock-a")
	hub.Register(a)

	hub.JoinRoom("sock-a", WaitingRoom)
	require.Equal(t, 1, hub.RoomSize(WaitingRoom))

	hub.JoinRoom("sock-a", "poll:1")
	assert.Zero(t, hub.RoomSize(WaitingRoom), "joining a poll room leaves the waiting room")
	assert.Equal(t, 1, hub.RoomSize("poll:1"))

	hub.JoinRoom("sock-unknown", "poll:1")
	assert.Equal(t, 1, hub.RoomSize("poll:1"), "unknown sockets are ignored")
}

func TestUnregisterCleansRoom(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), nil, nil)
	a := newTestClient("sock-a")
	hub.Register(a)
	hub.JoinRoom("sock-a", "poll:1")

	hub.Unregister(a)
	assert.Zero(t, hub.RoomSize("poll:1"))

	hub.SendToClient("sock-a", "error", nil)
	assert.Empty(t, drain(a), "sends to dropped connections are no-ops")
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), nil, nil)
	slow := &Client{ID: "sock-slow", send: make(chan WSMessage, 1)}
	fast := newTestClient("sock-fast")
	hub.Register(slow)
	hub.Register(fast)
	hub.JoinRoom("sock-slow", "poll:1")
	hub.JoinRoom("sock-fast", "poll:1")

	for i := 0; i < 10; i++ {
		hub.BroadcastToRoom("poll:1", "poll:update_results", map[string]int{"seq": i})
	}

	assert.Len(t, drain(slow), 1, "overflow is dropped for the slow reader")
	assert.Len(t, drain(fast), 10, "the fast reader still gets everything")
}

func TestMarshalPassthrough(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	assert.Equal(t, raw, marshal(raw))
	assert.Nil(t, marshal(nil))
	assert.JSONEq(t, `{"x":"y"}`, string(marshal(map[string]string{"x": "y"})))
}
