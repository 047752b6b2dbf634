package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sujay149/intervue-task/internal/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer; the socket is open like the hosted app
	},
}

// EventHandler is the router-side contract the transport feeds into.
type EventHandler interface {
	HandleJoin(socketID string, p live.JoinPayload)
	HandleSubmitAnswer(socketID string, p live.SubmitAnswerPayload)
	HandleStartPoll(socketID string, p live.StartPollPayload)
	HandleEndPoll(socketID string, p live.EndPollPayload)
	HandleNextQuestion(socketID string, p live.StartPollPayload)
	HandleChat(socketID string, p live.ChatSendPayload)
	HandleKick(socketID string, p live.KickPayload)
	HandleDisconnect(socketID string)
}

// Client is a single websocket connection. Its ID is the transient connection
// handle: fresh on every connect, never reused across reconnects.
type Client struct {
	ID     string
	hub    *Hub
	router EventHandler
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// ServeWs upgrades the request and runs the connection until it drops.
func ServeWs(hub *Hub, router EventHandler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			hub:    hub,
			router: router,
			conn:   conn,
			send:   make(chan WSMessage, 256),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// trySend queues a message, dropping it when the connection's buffer is full.
// A slow reader loses updates rather than stalling the broadcast path.
func (c *Client) trySend(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.router.HandleDisconnect(c.ID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.dispatch(msg)
	}
}

// dispatch decodes the payload and hands the event to the router. Malformed
// payloads earn a private error and nothing else.
func (c *Client) dispatch(msg WSMessage) {
	switch msg.Event {
	case live.EventStudentJoin:
		var p live.JoinPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleJoin(c.ID, p)
		}
	case live.EventSubmitAnswer:
		var p live.SubmitAnswerPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleSubmitAnswer(c.ID, p)
		}
	case live.EventStartPoll:
		var p live.StartPollPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleStartPoll(c.ID, p)
		}
	case live.EventEndPoll:
		var p live.EndPollPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleEndPoll(c.ID, p)
		}
	case live.EventNextQuestion:
		var p live.StartPollPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleNextQuestion(c.ID, p)
		}
	case live.EventChatSend:
		var p live.ChatSendPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleChat(c.ID, p)
		}
	case live.EventKickStudent:
		var p live.KickPayload
		if c.decode(msg.Data, &p) {
			c.router.HandleKick(c.ID, p)
		}
	default:
		// unknown events are ignored
	}
}

func (c *Client) decode(data json.RawMessage, out interface{}) bool {
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Debug("bad payload", zap.String("socket_id", c.ID), zap.Error(err))
		c.trySend(WSMessage{Event: live.EventError, Data: marshal(live.ErrorPayload{Message: "Malformed payload"})})
		return false
	}
	return true
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
