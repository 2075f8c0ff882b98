// Package alert turns a new-order event into an attention-grabbing,
// resource-bounded alert: one system notification plus a looping sound, at
// most one active session, released on every exit path.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gbcanteen/operator-console/internal/orders"
)

var (
	ErrNotAlerting = errors.New("no active alert")
	ErrNoPending   = errors.New("no pending orders")
)

type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier is the OS notification collaborator. Display returns an opaque
// handle for later cancellation.
type Notifier interface {
	RequestPermission(ctx context.Context) error
	Display(ctx context.Context, n Notification) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Sound is a playing loop owned by one alert session.
type Sound interface {
	Stop() error
	Unload() error
}

// SoundPlayer starts the looping alert sound.
type SoundPlayer interface {
	PlayLooping(ctx context.Context) (Sound, error)
}

// Haptics triggers a vibration pulse.
type Haptics interface {
	Pulse()
}

// StatusFunc applies a status transition; the coordinator borrows it from the
// sync controller so accept/reject flow through the same optimistic path as
// any other status change.
type StatusFunc func(ctx context.Context, orderID string, status orders.Status) error

type session struct {
	orderID      string
	notification string
	sound        Sound
	timer        *time.Timer
	startedAt    time.Time
}

type Coordinator struct {
	store    *orders.Store
	notifier Notifier
	player   SoundPlayer
	haptics  Haptics
	timeout  time.Duration

	mu      sync.Mutex
	session *session
	update  StatusFunc
	// OnResolved is called after every session ends, with the resolution
	// ("accepted", "rejected", "timeout", "released") and the target order id
	// when a status change happened.
	OnResolved func(resolution, orderID string)
}

func NewCoordinator(store *orders.Store, notifier Notifier, player SoundPlayer, haptics Haptics, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		store:    store,
		notifier: notifier,
		player:   player,
		haptics:  haptics,
		timeout:  timeout,
	}
}

// SetStatusFunc wires the transition callback; done after construction
// because the controller owning it is built later.
func (c *Coordinator) SetStatusFunc(fn StatusFunc) {
	c.mu.Lock()
	c.update = fn
	c.mu.Unlock()
}

// Init requests notification permission once. Denial degrades the feature
// silently: alerts still play sound, they just cannot notify.
func (c *Coordinator) Init(ctx context.Context) {
	if err := c.notifier.RequestPermission(ctx); err != nil {
		log.Printf("alert: notification permission: %v", err)
	}
}

// Active reports whether an alert session is currently running.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Trigger starts the alert workflow for a freshly inserted order. While a
// session is already active the event is absorbed into it (queue-and-extend):
// the running alert stays up and accept/reject will target the newest pending
// order anyway.
func (c *Coordinator) Trigger(ctx context.Context, o orders.Order) {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		log.Printf("alert: already alerting, absorbed order %s", o.ID)
		return
	}
	s := &session{orderID: o.ID, startedAt: time.Now()}
	c.session = s
	c.mu.Unlock()

	// Each side effect is independently fallible; a failed one never blocks
	// the next.
	handle, err := c.notifier.Display(ctx, Notification{
		Title: "New Order Received",
		Body:  fmt.Sprintf("Order #%s from %s", o.OrderNumber, o.User.Name),
		Data:  map[string]string{"orderId": o.ID},
	})
	if err != nil {
		log.Printf("alert: display notification: %v", err)
	}
	c.haptics.Pulse()
	snd, err := c.player.PlayLooping(ctx)
	if err != nil {
		log.Printf("alert: play sound: %v", err)
	}

	c.mu.Lock()
	if c.session != s {
		// Session ended while the side effects were in flight; release what
		// we just acquired instead of leaking it.
		c.mu.Unlock()
		c.release(handle, snd)
		return
	}
	s.notification = handle
	s.sound = snd
	s.timer = time.AfterFunc(c.timeout, c.expire)
	c.mu.Unlock()
}

// Accept resolves the alert and moves the newest pending order to Preparing.
func (c *Coordinator) Accept(ctx context.Context) (orders.Order, error) {
	return c.resolve(ctx, orders.StatusPreparing, "accepted")
}

// Reject resolves the alert and marks the newest pending order Rejected.
func (c *Coordinator) Reject(ctx context.Context) (orders.Order, error) {
	return c.resolve(ctx, orders.StatusRejected, "rejected")
}

func (c *Coordinator) resolve(ctx context.Context, target orders.Status, resolution string) (orders.Order, error) {
	s := c.take()
	if s == nil {
		return orders.Order{}, ErrNotAlerting
	}
	c.cleanup(s)

	o, ok := c.store.NewestPending()
	if !ok {
		c.resolved(resolution, "")
		return orders.Order{}, ErrNoPending
	}

	c.mu.Lock()
	update := c.update
	c.mu.Unlock()
	var err error
	if update != nil {
		err = update(ctx, o.ID, target)
	}
	c.resolved(resolution, o.ID)
	return o, err
}

// expire is the auto-dismiss path: sound and notification are cleared, the
// order stays Pending.
func (c *Coordinator) expire() {
	s := c.take()
	if s == nil {
		return
	}
	c.cleanup(s)
	c.resolved("timeout", "")
}

// Release tears down any active session without a status change; safe to call
// when idle. Used on controller shutdown.
func (c *Coordinator) Release() {
	s := c.take()
	if s == nil {
		return
	}
	c.cleanup(s)
	c.resolved("released", "")
}

// take detaches the current session so exactly one exit path cleans it up.
// The timer is stopped first to close the race between auto-dismiss and a
// user action.
func (c *Coordinator) take() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil {
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	c.session = nil
	return s
}

// cleanup releases both handles. Sound errors are logged and never block the
// notification cancel.
func (c *Coordinator) cleanup(s *session) {
	c.release(s.notification, s.sound)
}

func (c *Coordinator) release(notification string, snd Sound) {
	if snd != nil {
		if err := snd.Stop(); err != nil {
			log.Printf("alert: stop sound: %v", err)
		}
		if err := snd.Unload(); err != nil {
			log.Printf("alert: unload sound: %v", err)
		}
	}
	if notification != "" {
		if err := c.notifier.Cancel(context.Background(), notification); err != nil {
			log.Printf("alert: cancel notification: %v", err)
		}
	}
}

func (c *Coordinator) resolved(resolution, orderID string) {
	if c.OnResolved != nil {
		c.OnResolved(resolution, orderID)
	}
}
