package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	gw "github.com/gorilla/websocket"

	"ordering-platform/internal/auth"
	"ordering-platform/internal/domain"
	"ordering-platform/internal/service"
)

var upgrader = gw.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	hub      *Hub
	guard    *auth.Guard
	orderSvc service.OrderServiceInterface
}

func NewHandler(hub *Hub, guard *auth.Guard, orderSvc service.OrderServiceInterface) *Handler {
	return &Handler{hub: hub, guard: guard, orderSvc: orderSvc}
}

// ServeWS opens one subscription per connection. Scope comes from query
// parameters: scope=order|store|platform plus id where applicable. Order
// scope is public (the customer tracking view); store scope needs staff of
// that store; platform scope needs the operator.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor, err := h.guard.Resolve(auth.BearerToken(r))
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	switch scope.Kind {
	case domain.ScopeStore:
		if err := h.guard.RequireStaff(actor, scope.ID); err != nil {
			http.Error(w, "order not found or permission denied", http.StatusNotFound)
			return
		}
	case domain.ScopePlatform:
		if err := h.guard.RequireOperator(actor); err != nil {
			http.Error(w, "order not found or permission denied", http.StatusNotFound)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(h.hub, conn, scope)
	h.hub.register <- client
	go client.writePump()
	go client.readPump()

	// Seed single-order viewers with the current snapshot so they do not
	// wait for the next change to render anything.
	if scope.Kind == domain.ScopeOrder {
		if o, err := h.orderSvc.GetOrder(r.Context(), scope.ID); err == nil {
			if b, err := json.Marshal(domain.NewChangeEvent(o)); err == nil {
				select {
				case client.send <- b:
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func parseScope(r *http.Request) (domain.Scope, error) {
	q := r.URL.Query()
	switch domain.ScopeKind(q.Get("scope")) {
	case domain.ScopeOrder:
		id, err := uuid.Parse(q.Get("id"))
		if err != nil {
			return domain.Scope{}, errBadScope
		}
		return domain.OrderScope(id), nil
	case domain.ScopeStore:
		id, err := uuid.Parse(q.Get("id"))
		if err != nil {
			return domain.Scope{}, errBadScope
		}
		return domain.StoreScope(id), nil
	case domain.ScopePlatform:
		return domain.PlatformScope(), nil
	}
	return domain.Scope{}, errBadScope
}

var errBadScope = &scopeError{}

type scopeError struct{}

func (*scopeError) Error() string { return "scope must be order, store or platform with a valid id" }
