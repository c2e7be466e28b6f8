package subscriber

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	gw "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordering-platform/internal/domain"
)

var testUpgrader = gw.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// streamServer upgrades each connection, sends the given events, then
// closes, counting handshakes.
func streamServer(t *testing.T, events []domain.ChangeEvent, upgrades *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgrades.Add(1)
		for _, ev := range events {
			b, _ := json.Marshal(ev)
			if err := conn.WriteMessage(gw.TextMessage, b); err != nil {
				break
			}
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testEvent() domain.ChangeEvent {
	return domain.NewChangeEvent(domain.Order{
		ID:            uuid.New(),
		StoreID:       uuid.New(),
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentUnpaid,
	})
}

func TestCloseBeforeSettleOpensNothing(t *testing.T) {
	var upgrades atomic.Int32
	srv := streamServer(t, nil, &upgrades)

	m := New(wsURL(srv), domain.PlatformScope(), discardLogger(),
		WithSettleDelay(150*time.Millisecond))

	events := m.Subscribe(context.Background())
	time.Sleep(20 * time.Millisecond)
	m.Close()

	// The event channel must close without a single handshake happening.
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel did not close")
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), upgrades.Load())
	assert.Equal(t, StateClosed, m.State())
}

func TestReceivesEvents(t *testing.T) {
	var upgrades atomic.Int32
	want := testEvent()
	srv := streamServer(t, []domain.ChangeEvent{want}, &upgrades)

	m := New(wsURL(srv), domain.OrderScope(want.ID), discardLogger(),
		WithSettleDelay(time.Millisecond),
		WithBackoff(10*time.Millisecond, 50*time.Millisecond))
	defer m.Close()

	events := m.Subscribe(context.Background())

	select {
	case got := <-events:
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Snapshot.Status, got.Snapshot.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestReconnectsAfterDrop(t *testing.T) {
	var upgrades atomic.Int32
	// Server closes after one event, forcing a redial each time.
	srv := streamServer(t, []domain.ChangeEvent{testEvent()}, &upgrades)

	m := New(wsURL(srv), domain.PlatformScope(), discardLogger(),
		WithSettleDelay(time.Millisecond),
		WithBackoff(10*time.Millisecond, 20*time.Millisecond))
	defer m.Close()

	events := m.Subscribe(context.Background())

	received := 0
	deadline := time.After(3 * time.Second)
	for received < 2 {
		select {
		case _, ok := <-events:
			require.True(t, ok, "channel closed before reconnect delivered")
			received++
		case <-deadline:
			t.Fatal("reconnect never delivered a second event")
		}
	}
	assert.GreaterOrEqual(t, upgrades.Load(), int32(2))
}

func TestCloseIsIdempotent(t *testing.T) {
	var upgrades atomic.Int32
	srv := streamServer(t, nil, &upgrades)

	m := New(wsURL(srv), domain.PlatformScope(), discardLogger(),
		WithSettleDelay(time.Millisecond))

	events := m.Subscribe(context.Background())
	m.Close()
	m.Close() // second close is a no-op
	assert.Equal(t, StateClosed, m.State())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("event channel did not close")
	}
}

func TestCloseWithoutSubscribe(t *testing.T) {
	m := New("ws://localhost:0", domain.PlatformScope(), discardLogger())
	m.Close()
	assert.Equal(t, StateClosed, m.State())

	// Subscribing after close yields an already-closed channel.
	events := m.Subscribe(context.Background())
	_, ok := <-events
	assert.False(t, ok)
}

func TestContextCancelStopsSubscription(t *testing.T) {
	var upgrades atomic.Int32
	srv := streamServer(t, []domain.ChangeEvent{testEvent()}, &upgrades)

	ctx, cancel := context.WithCancel(context.Background())
	m := New(wsURL(srv), domain.PlatformScope(), discardLogger(),
		WithSettleDelay(time.Millisecond),
		WithBackoff(10*time.Millisecond, 20*time.Millisecond))
	defer m.Close()

	events := m.Subscribe(ctx)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel did not close after cancel")
		}
	}
}
