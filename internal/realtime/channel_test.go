package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gbcanteen/operator-console/internal/alert"
	"github.com/gbcanteen/operator-console/internal/orders"
)

type fakeTransport struct {
	mu           sync.Mutex
	onState      func(State)
	connectErr   error
	subscribeErr error
	subscribed   []string
	unsubscribed []string
	disconnects  int
	handler      Handler
}

func (t *fakeTransport) OnState(fn func(State)) { t.onState = fn }

func (t *fakeTransport) Connect(ctx context.Context) error { return t.connectErr }

func (t *fakeTransport) Subscribe(ctx context.Context, channel string, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribeErr != nil {
		return t.subscribeErr
	}
	t.subscribed = append(t.subscribed, channel)
	t.handler = h
	return nil
}

func (t *fakeTransport) Unsubscribe(ctx context.Context, channels ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unsubscribed = append(t.unsubscribed, channels...)
	return nil
}

func (t *fakeTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnects++
	return nil
}

func (t *fakeTransport) SocketID() string { return "socket-1" }

func (t *fakeTransport) deliver(ev Event) {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	h(ev)
}

func newTestChannel(t *testing.T) (*Channel, *fakeTransport, *orders.Store, *alert.Coordinator) {
	t.Helper()
	store := orders.NewStore()
	alerts := alert.NewCoordinator(store,
		alert.LogNotifier{}, alert.LogSoundPlayer{}, alert.LogHaptics{}, time.Minute)
	alerts.SetStatusFunc(func(ctx context.Context, id string, st orders.Status) error { return nil })
	transport := &fakeTransport{}
	ch := NewChannel(transport, store, alerts, nil, nil)
	return ch, transport, store, alerts
}

func orderEvent(t *testing.T, o orders.Order) Event {
	t.Helper()
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal order: %v", err)
	}
	return Event{Name: orders.EventNewOrder, Data: data}
}

func TestStartSubscribesPublicChannel(t *testing.T) {
	ch, transport, _, _ := newTestChannel(t)
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(transport.subscribed) != 1 || transport.subscribed[0] != "restaurant-42" {
		t.Fatalf("subscribed = %v, want [restaurant-42]", transport.subscribed)
	}
	// Both name variants dropped before subscribing.
	want := map[string]bool{"restaurant-42": true, "private-restaurant-42": true}
	for _, u := range transport.unsubscribed {
		delete(want, u)
	}
	if len(want) != 0 {
		t.Fatalf("variants not unsubscribed: %v (got %v)", want, transport.unsubscribed)
	}
	if ch.State() != StateConnected {
		t.Fatalf("state = %s, want Connected", ch.State())
	}
}

func TestStartPrivateChannelAuthorized(t *testing.T) {
	ch, transport, _, _ := newTestChannel(t)
	var gotChannel, gotSocket string
	authorize := func(ctx context.Context, channel, socketID string) error {
		gotChannel, gotSocket = channel, socketID
		return nil
	}
	if err := ch.Start(context.Background(), "42", "GBC Canteen", authorize); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gotChannel != "private-restaurant-42" || gotSocket != "socket-1" {
		t.Fatalf("authorizer got %q/%q", gotChannel, gotSocket)
	}
	if transport.subscribed[0] != "private-restaurant-42" {
		t.Fatalf("subscribed = %v, want private channel", transport.subscribed)
	}
}

func TestAuthorizationFailureAbortsSubscribe(t *testing.T) {
	ch, transport, _, _ := newTestChannel(t)
	authorize := func(ctx context.Context, channel, socketID string) error {
		return errors.New("403")
	}
	err := ch.Start(context.Background(), "42", "GBC Canteen", authorize)
	if err == nil {
		t.Fatal("Start succeeded despite authorizer failure")
	}
	if ch.State() != StateAuthError {
		t.Fatalf("state = %s, want AuthError", ch.State())
	}
	if len(transport.subscribed) != 0 {
		t.Fatalf("subscribed despite auth failure: %v", transport.subscribed)
	}
	if transport.disconnects == 0 {
		t.Fatal("transport left connected after auth failure")
	}
}

func TestConnectFailureReportsError(t *testing.T) {
	ch, transport, _, _ := newTestChannel(t)
	transport.connectErr = errors.New("broker down")
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err == nil {
		t.Fatal("Start succeeded despite connect failure")
	}
	if ch.State() != StateError {
		t.Fatalf("state = %s, want Error", ch.State())
	}
}

func TestNewOrderEventMergesAndAlerts(t *testing.T) {
	ch, transport, store, alerts := newTestChannel(t)
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	o := orders.Order{ID: "o1", OrderNumber: "GBC-100", Status: orders.StatusPending, CreatedAt: time.Now()}
	transport.deliver(orderEvent(t, o))

	if store.Len() != 1 {
		t.Fatalf("store has %d orders, want 1", store.Len())
	}
	if !alerts.Active() {
		t.Fatal("alert not triggered for inserted order")
	}
}

func TestDuplicateEventDoesNotRetrigger(t *testing.T) {
	ch, transport, store, alerts := newTestChannel(t)
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	o := orders.Order{ID: "o1", Status: orders.StatusPending, CreatedAt: time.Now()}
	transport.deliver(orderEvent(t, o))
	alerts.Release()

	transport.deliver(orderEvent(t, o))
	if store.Len() != 1 {
		t.Fatalf("duplicate delivery grew the store to %d", store.Len())
	}
	if alerts.Active() {
		t.Fatal("alert re-triggered for a re-delivered duplicate")
	}
}

func TestMalformedPayloadDropped(t *testing.T) {
	ch, transport, store, _ := newTestChannel(t)
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	transport.deliver(Event{Name: orders.EventNewOrder, Data: json.RawMessage(`{"id":`)})
	transport.deliver(Event{Name: orders.EventNewOrder, Data: json.RawMessage(`{"amount":100}`)}) // no id
	if store.Len() != 0 {
		t.Fatalf("malformed payloads reached the store: %d", store.Len())
	}
}

func TestUnrelatedEventIgnored(t *testing.T) {
	ch, transport, store, alerts := newTestChannel(t)
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	transport.deliver(Event{Name: "pusher:pong", Data: json.RawMessage(`{}`)})
	if store.Len() != 0 || alerts.Active() {
		t.Fatal("unrelated event changed state")
	}
}

func TestStopIdempotentAndSafeBeforeStart(t *testing.T) {
	ch, transport, _, _ := newTestChannel(t)
	ch.Stop() // never started

	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch.Stop()
	ch.Stop()

	if transport.disconnects != 1 {
		t.Fatalf("disconnects = %d, want 1", transport.disconnects)
	}
	if ch.State() != StateDisconnected {
		t.Fatalf("state = %s, want Disconnected", ch.State())
	}
}

func TestRestartUnsubscribesPreviousChannel(t *testing.T) {
	ch, transport, _, _ := newTestChannel(t)
	if err := ch.Start(context.Background(), "42", "GBC Canteen", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ch.Start(context.Background(), "43", "Second Site", nil); err != nil {
		t.Fatalf("restart: %v", err)
	}

	found := false
	for _, u := range transport.unsubscribed {
		if u == "restaurant-42" {
			found = true
		}
	}
	if !found {
		t.Fatalf("previous channel not unsubscribed: %v", transport.unsubscribed)
	}
	last := transport.subscribed[len(transport.subscribed)-1]
	if last != "restaurant-43" {
		t.Fatalf("last subscription = %s, want restaurant-43", last)
	}
}
