package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpExchange = "restaurant.events"

// AMQPTransport runs the restaurant channel over a RabbitMQ direct exchange:
// one exclusive server-named queue bound with the channel name as routing
// key. Alternate backend for deployments without Redis.
type AMQPTransport struct {
	url      string
	socketID string

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	onState func(State)
}

func NewAMQPTransport(url string) *AMQPTransport {
	return &AMQPTransport{url: url, socketID: uuid.NewString()}
}

func (t *AMQPTransport) OnState(fn func(State)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

func (t *AMQPTransport) emit(s State) {
	t.mu.Lock()
	fn := t.onState
	t.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (t *AMQPTransport) SocketID() string { return t.socketID }

func (t *AMQPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil && !t.conn.IsClosed() {
		return nil
	}
	conn, err := amqp.Dial(t.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(amqpExchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	t.conn, t.ch = conn, ch
	return nil
}

func (t *AMQPTransport) Subscribe(ctx context.Context, channel string, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch == nil {
		return fmt.Errorf("amqp: not connected")
	}

	if t.queue == "" {
		q, err := t.ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return err
		}
		t.queue = q.Name
	}
	if err := t.ch.QueueBind(t.queue, channel, amqpExchange, false, nil); err != nil {
		return err
	}

	deliveries, err := t.ch.Consume(t.queue, t.socketID, true, true, false, false, nil)
	if err != nil {
		return err
	}
	go func() {
		for d := range deliveries {
			var ev Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Printf("realtime: bad frame on %s: %v", channel, err)
				continue
			}
			h(ev)
		}
		t.emit(StateDisconnected)
	}()
	return nil
}

func (t *AMQPTransport) Unsubscribe(ctx context.Context, channels ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ch == nil || t.queue == "" {
		return nil
	}
	for _, c := range channels {
		if err := t.ch.QueueUnbind(t.queue, c, amqpExchange, nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *AMQPTransport) Disconnect() error {
	t.mu.Lock()
	conn, ch := t.conn, t.ch
	t.conn, t.ch, t.queue = nil, nil, ""
	t.mu.Unlock()
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
