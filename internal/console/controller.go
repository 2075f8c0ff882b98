// Package console binds the store, realtime channel, alert workflow and
// remote API into one operator session.
package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gbcanteen/operator-console/internal/alert"
	"github.com/gbcanteen/operator-console/internal/auth"
	"github.com/gbcanteen/operator-console/internal/config"
	"github.com/gbcanteen/operator-console/internal/journal"
	"github.com/gbcanteen/operator-console/internal/orders"
	"github.com/gbcanteen/operator-console/internal/realtime"
)

var (
	ErrNotInitialized = errors.New("session not initialized")
	ErrUnknownOrder   = errors.New("order not in live set")
)

// OrderAPI is the remote order-management collaborator.
type OrderAPI interface {
	ListOrders(ctx context.Context, token string) ([]orders.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID string, status orders.Status) error
	Login(ctx context.Context, name, password string) (string, error)
	AuthorizeChannel(ctx context.Context, token, channel, socketID, restaurantID, restaurantName string) error
}

// UpdateResult reports an optimistic status change. The local value is kept
// even when Synced is false; Previous is there for callers that decide to
// revert.
type UpdateResult struct {
	OrderID  string        `json:"orderId"`
	Previous orders.Status `json:"previous"`
	Applied  orders.Status `json:"applied"`
	Synced   bool          `json:"synced"`
}

type Controller struct {
	cfg     config.Config
	store   *orders.Store
	api     OrderAPI
	alerts  *alert.Coordinator
	channel *realtime.Channel
	journal *journal.Journal

	mu          sync.Mutex
	token       string
	identity    auth.SessionIdentity
	sweepCancel context.CancelFunc
}

func NewController(cfg config.Config, store *orders.Store, apiClient OrderAPI, alerts *alert.Coordinator, channel *realtime.Channel, j *journal.Journal) *Controller {
	c := &Controller{
		cfg:     cfg,
		store:   store,
		api:     apiClient,
		alerts:  alerts,
		channel: channel,
		journal: j,
	}
	alerts.SetStatusFunc(func(ctx context.Context, orderID string, status orders.Status) error {
		_, err := c.UpdateOrderStatus(ctx, orderID, status)
		return err
	})
	alerts.OnResolved = func(resolution, orderID string) {
		j.Record(orders.EventAlertResolved, orderID, orders.AlertResolvedPayload{
			OrderID:    orderID,
			Resolution: resolution,
		})
	}
	return c
}

// Initialize decodes the session identity, loads the live working set from a
// full fetch and starts the realtime channel and the expiry sweep. A channel
// that cannot connect does not fail the session: the failure stays visible
// through the connection state while the fetched orders remain usable.
func (c *Controller) Initialize(ctx context.Context, token string) error {
	identity, err := auth.DecodeIdentity(token)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	all, err := c.api.ListOrders(ctx, token)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	now := time.Now()
	live, _ := orders.PartitionLive(all, now, c.cfg.LiveWindow)
	c.store.ReplaceAll(live)
	log.Printf("console: loaded %d live orders for %s", len(live), identity.RestaurantName)

	c.mu.Lock()
	c.token = token
	c.identity = identity
	c.mu.Unlock()

	var authorize realtime.Authorizer
	if c.cfg.PrivateChannel {
		authorize = func(ctx context.Context, channel, socketID string) error {
			return c.api.AuthorizeChannel(ctx, token, channel, socketID,
				identity.RestaurantID, identity.RestaurantName)
		}
	}
	if err := c.channel.Start(ctx, identity.RestaurantID, identity.RestaurantName, authorize); err != nil {
		log.Printf("console: realtime start: %v", err)
	}

	c.startSweep()
	return nil
}

// Login exchanges credentials for a token and initializes the session.
func (c *Controller) Login(ctx context.Context, name, password string) error {
	token, err := c.api.Login(ctx, name, password)
	if err != nil {
		return err
	}
	return c.Initialize(ctx, token)
}

// UpdateOrderStatus applies the change locally first so the view stays
// responsive, then patches the server. On remote failure the optimistic value
// is kept and the error surfaced; the server stays authoritative on conflict.
func (c *Controller) UpdateOrderStatus(ctx context.Context, orderID string, status orders.Status) (UpdateResult, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return UpdateResult{}, ErrNotInitialized
	}

	next := orders.Canonical(string(status))
	prev, found := c.store.Get(orderID)
	if !found {
		return UpdateResult{OrderID: orderID}, ErrUnknownOrder
	}
	c.store.ApplyStatus(orderID, next)

	err := c.api.UpdateOrderStatus(ctx, token, orderID, next)
	res := UpdateResult{
		OrderID:  orderID,
		Previous: prev.Status,
		Applied:  next,
		Synced:   err == nil,
	}
	c.journal.Record(orders.EventStatusUpdated, orderID, orders.StatusUpdatedPayload{
		OrderID:  orderID,
		Previous: prev.Status,
		Next:     next,
		Synced:   err == nil,
	})
	if err != nil {
		log.Printf("console: status patch %s -> %s: %v", orderID, next, err)
		return res, fmt.Errorf("update order status: %w", err)
	}
	return res, nil
}

// FetchAll pulls the full order list for history and summary views; these are
// derived from the remote set, never reconstructed from evicted live entries.
func (c *Controller) FetchAll(ctx context.Context) ([]orders.Order, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil, ErrNotInitialized
	}
	return c.api.ListOrders(ctx, token)
}

func (c *Controller) Identity() auth.SessionIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Controller) ConnectionState() realtime.State { return c.channel.State() }

func (c *Controller) LiveWindow() time.Duration { return c.cfg.LiveWindow }

// startSweep replaces any running sweep with a fresh one.
func (c *Controller) startSweep() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.sweepCancel != nil {
		c.sweepCancel()
	}
	c.sweepCancel = cancel
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := c.store.EvictExpired(now, c.cfg.LiveWindow); removed > 0 {
					log.Printf("console: swept %d expired orders", removed)
				}
			}
		}
	}()
}

// Shutdown tears the session down: realtime first so no event lands in a
// dying store, then the sweep, then any active alert. Idempotent.
func (c *Controller) Shutdown() {
	c.channel.Stop()
	c.mu.Lock()
	if c.sweepCancel != nil {
		c.sweepCancel()
		c.sweepCancel = nil
	}
	c.mu.Unlock()
	c.alerts.Release()
}
