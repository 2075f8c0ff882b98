package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTransport runs the restaurant channel over Redis pub/sub. The client
// is shared and owned by the caller; the transport only owns its
// subscription.
type RedisTransport struct {
	rdb      *redis.Client
	socketID string

	mu      sync.Mutex
	pubsub  *redis.PubSub
	onState func(State)
}

func NewRedisTransport(rdb *redis.Client) *RedisTransport {
	return &RedisTransport{rdb: rdb, socketID: uuid.NewString()}
}

func (t *RedisTransport) OnState(fn func(State)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

func (t *RedisTransport) emit(s State) {
	t.mu.Lock()
	fn := t.onState
	t.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (t *RedisTransport) SocketID() string { return t.socketID }

func (t *RedisTransport) Connect(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return t.rdb.Ping(pingCtx).Err()
}

func (t *RedisTransport) Subscribe(ctx context.Context, channel string, h Handler) error {
	t.mu.Lock()
	if t.pubsub != nil {
		_ = t.pubsub.Close()
	}
	ps := t.rdb.Subscribe(ctx, channel)
	t.pubsub = ps
	t.mu.Unlock()

	// Force the SUBSCRIBE round-trip so a dead broker fails here, not in the
	// receive loop.
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	go func() {
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("realtime: bad frame on %s: %v", msg.Channel, err)
				continue
			}
			h(ev)
		}
		// Channel closes on Unsubscribe/Disconnect or a dropped connection.
		t.emit(StateDisconnected)
	}()
	return nil
}

func (t *RedisTransport) Unsubscribe(ctx context.Context, channels ...string) error {
	t.mu.Lock()
	ps := t.pubsub
	t.mu.Unlock()
	if ps == nil {
		return nil
	}
	return ps.Unsubscribe(ctx, channels...)
}

func (t *RedisTransport) Disconnect() error {
	t.mu.Lock()
	ps := t.pubsub
	t.pubsub = nil
	t.mu.Unlock()
	if ps == nil {
		return nil
	}
	return ps.Close()
}
