package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	eventsChannel  = "classroom:events"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message exchanged between instances. Origin lets each
// instance skip its own publishes, since every broadcast is also delivered
// locally before being published.
type redisPayload struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	At     int64           `json:"at"`
}

// RedisPubSub bridges hub broadcasts across server instances over a single
// Redis channel. It implements both RedisPublisher and RedisSubscriber.
type RedisPubSub struct {
	client     *redis.Client
	instanceID string
	logger     *zap.Logger
}

// NewRedisPubSub creates the bridge with a fresh instance identity.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{
		client:     client,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
}

// PublishEvent publishes an event for other instances. Room "" means global.
func (r *RedisPubSub) PublishEvent(room, event string, payload []byte) error {
	body, err := json.Marshal(redisPayload{
		Origin: r.instanceID,
		Room:   room,
		Event:  event,
		Data:   payload,
		At:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, eventsChannel, body).Err()
}

// Subscribe starts consuming events published by other instances. Messages
// originating from this instance are dropped to avoid double delivery.
func (r *RedisPubSub) Subscribe(handler func(room, event string, payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, eventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Debug("bad redis payload", zap.Error(err))
					continue
				}
				if p.Origin == r.instanceID {
					continue
				}
				handler(p.Room, p.Event, p.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
