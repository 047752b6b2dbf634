// Package realtime carries the websocket transport: the Hub tracks every
// connection and its room, and an optional Redis bridge fans events out to
// other server instances.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait (seconds) drive the heartbeat.
	PingInterval = 30
	PongWait     = 60

	// WaitingRoom groups connections that joined before any poll started.
	WaitingRoom = "poll:waiting"
)

// WSMessage is the websocket envelope for every event in both directions.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RedisPublisher publishes an event for other instances. Room is empty for
// global events.
type RedisPublisher interface {
	PublishEvent(room, event string, payload []byte) error
}

// RedisSubscriber delivers events published by other instances. The handler
// receives room=="" for global events.
type RedisSubscriber interface {
	Subscribe(handler func(room, event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains the set of connected clients and their room membership and
// implements the broadcaster contract: everyone, one room, or one connection.
// Messages are delivered best effort to live connections only; nothing is
// queued or replayed for clients that connect later.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // socketID -> client
	rooms   map[string]map[string]*Client // room -> socketID -> client
	roomOf  map[string]string             // socketID -> room

	logger    *zap.Logger
	redis     RedisPublisher
	cancelSub func()
}

// NewHub creates a hub. redisPub and redisSub may both be nil for
// single-instance deployments; the hub then broadcasts locally only.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	h := &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		roomOf:  make(map[string]string),
		logger:  logger,
		redis:   redisPub,
	}
	if redisSub != nil {
		cancel, err := redisSub.Subscribe(func(room, event string, payload []byte) {
			if room == "" {
				h.broadcastAllLocal(event, json.RawMessage(payload))
				return
			}
			h.broadcastRoomLocal(room, event, json.RawMessage(payload))
		})
		if err != nil {
			logger.Warn("redis subscribe failed, running single-instance", zap.Error(err))
		} else {
			h.cancelSub = cancel
		}
	}
	return h
}

// Close stops the Redis subscription, if any.
func (h *Hub) Close() {
	if h.cancelSub != nil {
		h.cancelSub()
	}
}

// Register adds a newly upgraded connection. Clients start roomless until the
// router places them via JoinRoom.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("socket_id", c.ID))
}

// Unregister drops a closed connection from the hub and its room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	if room, ok := h.roomOf[c.ID]; ok {
		delete(h.roomOf, c.ID)
		if members := h.rooms[room]; members != nil {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("socket_id", c.ID))
}

// JoinRoom moves a connection into a room, leaving any previous one. A
// connection is in at most one room at a time.
func (h *Hub) JoinRoom(socketID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[socketID]
	if !ok {
		return
	}
	if prev, ok := h.roomOf[socketID]; ok {
		if prev == room {
			return
		}
		if members := h.rooms[prev]; members != nil {
			delete(members, socketID)
			if len(members) == 0 {
				delete(h.rooms, prev)
			}
		}
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][socketID] = c
	h.roomOf[socketID] = room
}

// BroadcastAll sends to every connected transport, here and on other
// instances. Used for round starts so pre-join clients learn a round exists.
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	data := marshal(payload)
	h.broadcastAllLocal(event, data)
	if h.redis != nil {
		if err := h.redis.PublishEvent("", event, data); err != nil {
			h.logger.Warn("redis publish failed", zap.String("event", event), zap.Error(err))
		}
	}
}

// BroadcastToRoom sends to every member of a room, here and on other
// instances.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) {
	data := marshal(payload)
	h.broadcastRoomLocal(room, event, data)
	if h.redis != nil {
		if err := h.redis.PublishEvent(room, event, data); err != nil {
			h.logger.Warn("redis publish failed", zap.String("event", event), zap.Error(err))
		}
	}
}

// SendToClient sends to one connection. No-op when the target already
// dropped.
func (h *Hub) SendToClient(socketID, event string, payload interface{}) {
	h.mu.RLock()
	c, ok := h.clients[socketID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.trySend(WSMessage{Event: event, Data: marshal(payload)})
}

// RoomSize reports current membership, mostly for tests and health output.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) broadcastAllLocal(event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(msg)
	}
}

func (h *Hub) broadcastRoomLocal(room, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(msg)
	}
}

func marshal(payload interface{}) json.RawMessage {
	switch v := payload.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return v
	case []byte:
		return v
	default:
		data, _ := json.Marshal(payload)
		return data
	}
}
