package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"ordering-platform/internal/domain"
	"ordering-platform/internal/metrics"
)

// Hub routes change events to connected clients by subscription scope. All
// client bookkeeping happens on the Run goroutine; register, unregister and
// broadcast are the only entry points.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.ChangeEvent
	clients    map[*Client]struct{}
	lg         *slog.Logger
}

func NewHub(lg *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.ChangeEvent, 256),
		clients:    make(map[*Client]struct{}),
		lg:         lg,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.SubscribedClients.Inc()
			h.lg.Debug("client_subscribed", "scope", c.scope.String())
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.SubscribedClients.Dec()
				h.lg.Debug("client_unsubscribed", "scope", c.scope.String())
			}
		case ev := <-h.broadcast:
			msg, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			for c := range h.clients {
				if !c.scope.Matches(ev) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
					metrics.SubscribedClients.Dec()
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]struct{})
			return
		}
	}
}

func (h *Hub) Broadcast(ev domain.ChangeEvent) {
	select {
	case h.broadcast <- ev:
	default:
		h.lg.Error("broadcast_backlog_full", "order_id", ev.ID)
	}
}
