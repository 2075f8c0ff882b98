// Package realtime owns the subscription lifecycle to the per-restaurant
// event feed: init, connect, (re)subscribe, deliver, report state.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gbcanteen/operator-console/internal/alert"
	"github.com/gbcanteen/operator-console/internal/journal"
	"github.com/gbcanteen/operator-console/internal/orders"
)

// Event is the wire envelope carried on a restaurant channel.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type Handler func(Event)

// Transport is the pub/sub collaborator the channel runs over.
type Transport interface {
	// OnState registers the callback for asynchronous state transitions.
	OnState(fn func(State))
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, channel string, h Handler) error
	Unsubscribe(ctx context.Context, channels ...string) error
	Disconnect() error
	SocketID() string
}

// Authorizer performs the signed subscribe request for private channels. An
// error must abort the subscribe.
type Authorizer func(ctx context.Context, channel, socketID string) error

// PublicChannelName and PrivateChannelName derive the channel names for a
// restaurant. Both are unsubscribed before any new subscribe so a restaurant
// switch never leaves a stale variant delivering duplicates.
func PublicChannelName(restaurantID string) string  { return "restaurant-" + restaurantID }
func PrivateChannelName(restaurantID string) string { return "private-restaurant-" + restaurantID }

type Channel struct {
	transport Transport
	store     *orders.Store
	alerts    *alert.Coordinator
	journal   *journal.Journal
	onState   func(State)

	mu      sync.Mutex
	state   State
	name    string
	started bool
}

// NewChannel builds a channel around an owned transport. onState may be nil.
func NewChannel(t Transport, store *orders.Store, alerts *alert.Coordinator, j *journal.Journal, onState func(State)) *Channel {
	c := &Channel{
		transport: t,
		store:     store,
		alerts:    alerts,
		journal:   j,
		onState:   onState,
		state:     StateUninitialized,
	}
	t.OnState(c.setState)
	return c
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	cb := c.onState
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// Start connects and subscribes for the restaurant. A prior subscription is
// torn down first; teardown errors are logged, never propagated. When
// authorize is non-nil the private channel is used and a failed authorization
// aborts the subscribe with StateAuthError.
func (c *Channel) Start(ctx context.Context, restaurantID, restaurantName string, authorize Authorizer) error {
	c.Stop()

	c.setState(StateInitializing)

	c.setState(StateConnecting)
	if err := c.transport.Connect(ctx); err != nil {
		c.setState(StateError)
		return fmt.Errorf("realtime connect: %w", err)
	}

	name := PublicChannelName(restaurantID)
	if authorize != nil {
		name = PrivateChannelName(restaurantID)
	}

	// Drop both name variants before subscribing to avoid duplicate delivery
	// after a restaurant or auth-mode switch.
	if err := c.transport.Unsubscribe(ctx, PublicChannelName(restaurantID), PrivateChannelName(restaurantID)); err != nil {
		log.Printf("realtime: unsubscribe previous: %v", err)
	}

	if authorize != nil {
		c.setState(StateAuthorizing)
		if err := authorize(ctx, name, c.transport.SocketID()); err != nil {
			c.setState(StateAuthError)
			_ = c.transport.Disconnect()
			return fmt.Errorf("channel authorization: %w", err)
		}
		c.setState(StateAuthorized)
	}

	if err := c.transport.Subscribe(ctx, name, c.handle); err != nil {
		c.setState(StateError)
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	c.setState(StateConnected)

	c.mu.Lock()
	c.name = name
	c.started = true
	c.mu.Unlock()
	log.Printf("realtime: subscribed to %s (%s)", name, restaurantName)
	return nil
}

// handle merges an inbound event into the store. The alert only fires when
// the merge actually inserted, so a re-delivered duplicate never re-triggers
// it. Malformed payloads are logged and dropped.
func (c *Channel) handle(ev Event) {
	if ev.Name != orders.EventNewOrder {
		return
	}
	var o orders.Order
	if err := json.Unmarshal(ev.Data, &o); err != nil {
		log.Printf("realtime: malformed %s payload: %v", ev.Name, err)
		return
	}
	if o.ID == "" {
		log.Printf("realtime: %s payload without id dropped", ev.Name)
		return
	}

	if c.store.Merge(o) != orders.MergeInserted {
		return
	}
	c.journal.Record(orders.EventOrderReceived, o.ID, orders.OrderReceivedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		AmountPence: o.AmountPence,
		CreatedAt:   o.CreatedAt,
	})
	c.alerts.Trigger(context.Background(), o)
}

// Stop unsubscribes and disconnects. Safe to call repeatedly and before a
// successful Start.
func (c *Channel) Stop() {
	c.mu.Lock()
	name := c.name
	started := c.started
	c.name = ""
	c.started = false
	c.mu.Unlock()
	if !started {
		return
	}

	if name != "" {
		if err := c.transport.Unsubscribe(context.Background(), name); err != nil {
			log.Printf("realtime: unsubscribe %s: %v", name, err)
		}
	}
	if err := c.transport.Disconnect(); err != nil {
		log.Printf("realtime: disconnect: %v", err)
	}
	c.setState(StateDisconnected)
}
