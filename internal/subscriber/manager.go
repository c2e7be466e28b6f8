// Package subscriber is the viewer-side subscription manager. Each viewer
// owns one Manager matching its scope; the Manager runs an explicit
// connection state machine
//
//	idle -> connecting -> connected -> closed
//
// with a cancellable settle delay before the first dial (so rapid
// mount/unmount cycles never open a connection at all), automatic redial
// with capped backoff, and an idempotent Close.
package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	gw "github.com/gorilla/websocket"

	"ordering-platform/internal/domain"
)

type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type Option func(*Manager)

// WithSettleDelay overrides the delay between Subscribe and the first dial.
func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

func WithBackoff(min, max time.Duration) Option {
	return func(m *Manager) { m.backoffMin, m.backoffMax = min, max }
}

func WithToken(token string) Option {
	return func(m *Manager) { m.token = token }
}

type Manager struct {
	endpoint string // ws:// or wss:// URL of the change stream
	scope    domain.Scope
	token    string

	settle     time.Duration
	backoffMin time.Duration
	backoffMax time.Duration

	dialer *gw.Dialer
	lg     *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	events chan domain.ChangeEvent

	closeOnce sync.Once
}

func New(endpoint string, scope domain.Scope, lg *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		endpoint:   endpoint,
		scope:      scope,
		settle:     200 * time.Millisecond,
		backoffMin: 500 * time.Millisecond,
		backoffMax: 15 * time.Second,
		dialer:     gw.DefaultDialer,
		lg:         lg,
		state:      StateIdle,
		events:     make(chan domain.ChangeEvent, 64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	// closed is final; a late dial success must not resurrect the manager.
	if m.state != StateClosed {
		m.state = s
	}
	m.mu.Unlock()
}

// Subscribe starts the connection state machine and returns the event
// channel. The channel closes when the subscription ends, whatever the
// reason. Calling Subscribe more than once is a bug.
func (m *Manager) Subscribe(ctx context.Context) <-chan domain.ChangeEvent {
	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		cancel()
		close(m.events)
		return m.events
	}
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(runCtx)
	return m.events
}

// Close tears the subscription down from any state: before the settle delay
// fires it cancels the pending connect, afterwards it closes the transport.
// Closing twice, or without ever subscribing, is a no-op.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.state = StateClosed
		cancel := m.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.events)
	defer m.setState(StateClosed)

	// Settle: absorb rapid mount/unmount before paying for a handshake.
	settleTimer := time.NewTimer(m.settle)
	select {
	case <-ctx.Done():
		settleTimer.Stop()
		return
	case <-settleTimer.C:
	}

	backoff := m.backoffMin
	for {
		m.setState(StateConnecting)
		conn, _, err := m.dialer.DialContext(ctx, m.url(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.lg.Debug("dial_failed", "scope", m.scope.String(), "retry_in", backoff, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > m.backoffMax {
				backoff = m.backoffMax
			}
			continue
		}

		m.setState(StateConnected)
		backoff = m.backoffMin
		m.lg.Debug("subscribed", "scope", m.scope.String())

		if done := m.read(ctx, conn); done {
			return
		}
		// Transport dropped; redial transparently.
		m.lg.Debug("subscription_dropped", "scope", m.scope.String())
	}
}

// read pumps events until the connection dies (returns false, redial) or
// ctx is cancelled (returns true, stop).
func (m *Manager) read(ctx context.Context, conn *gw.Conn) bool {
	defer conn.Close()

	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return ctx.Err() != nil
		}
		var ev domain.ChangeEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			m.lg.Debug("bad_event_payload", "error", err)
			continue
		}
		select {
		case m.events <- ev:
		case <-ctx.Done():
			return true
		}
	}
}

func (m *Manager) url() string {
	v := url.Values{}
	v.Set("scope", string(m.scope.Kind))
	if m.scope.Kind != domain.ScopePlatform {
		v.Set("id", m.scope.ID.String())
	}
	if m.token != "" {
		v.Set("token", m.token)
	}
	return fmt.Sprintf("%s?%s", m.endpoint, v.Encode())
}
