// Package journal publishes console activity to Kafka for downstream
// reporting. It is fire-and-forget: the working set never depends on it.
package journal

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/gbcanteen/operator-console/internal/orders"
)

const Topic = "console.order.events"

// Journal is the write side of the event stream. A nil *Journal is a valid
// no-op so callers don't have to guard every Record call.
type Journal struct {
	w       *kafka.Writer
	service string
	inbox   chan kafka.Message

	done      chan struct{} // closed by Close; Record drops afterwards
	closed    chan struct{} // closed when the publish loop has drained
	closeOnce sync.Once
}

func New(brokers []string, service string, buf int) *Journal {
	if len(brokers) == 0 {
		return nil
	}
	return &Journal{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		service: service,
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// Start runs the publish loop until ctx is cancelled or Close is called,
// draining whatever is buffered before closing the writer.
func (j *Journal) Start(ctx context.Context) {
	if j == nil {
		return
	}
	go func() {
		defer func() {
			_ = j.w.Close()
			close(j.closed)
		}()
		for {
			select {
			case <-ctx.Done():
				j.drain()
				return
			case <-j.done:
				j.drain()
				return
			case m := <-j.inbox:
				j.write(m)
			}
		}
	}()
}

func (j *Journal) drain() {
	for {
		select {
		case m := <-j.inbox:
			j.write(m)
		default:
			return
		}
	}
}

func (j *Journal) write(m kafka.Message) {
	if err := j.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("journal: write: %v", err)
	}
}

// Record enqueues one envelope keyed by order id so all events for an order
// stay in partition order. Records arriving after Close, or while the inbox
// is full, are dropped; the inbox is never closed, so a late Record from a
// still-draining delivery goroutine can never panic.
func (j *Journal) Record(eventType, orderID string, payload any) {
	if j == nil {
		return
	}
	select {
	case <-j.done:
		log.Printf("journal: closed, dropping %s for %s", eventType, orderID)
		return
	default:
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("journal: marshal %s: %v", eventType, err)
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      j.service,
		CorrelationID: orderID,
		Payload:       raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("journal: marshal envelope: %v", err)
		return
	}
	select {
	case j.inbox <- kafka.Message{
		Key:   []byte(orderID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}:
	default:
		log.Printf("journal: inbox full, dropping %s for %s", eventType, orderID)
	}
}

// Close stops accepting events and lets the loop flush and exit. Idempotent
// and safe to combine with context cancellation.
func (j *Journal) Close() {
	if j == nil {
		return
	}
	j.closeOnce.Do(func() { close(j.done) })
}

// WaitClosed blocks until the publish loop has drained.
func (j *Journal) WaitClosed() {
	if j == nil {
		return
	}
	<-j.closed
}
