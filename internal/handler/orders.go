package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ordering-platform/internal/auth"
	"ordering-platform/internal/domain"
	"ordering-platform/internal/service"
)

type OrderHandler struct {
	svc service.OrderServiceInterface
	lg  *slog.Logger
}

func NewOrderHandler(svc service.OrderServiceInterface, lg *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, lg: lg}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, domain.Fail("malformed request body"))
		return
	}
	order, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, domain.OK(map[string]any{"order_id": order.ID, "order": order}))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, domain.OK(order))
}

func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.storeCommand(w, r, func(actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error) {
		return h.svc.AcceptOrder(r.Context(), actor, storeID, orderID)
	})
}

func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	// The reason is optional; an empty or absent body is fine.
	_ = json.NewDecoder(r.Body).Decode(&body)

	h.storeCommand(w, r, func(actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error) {
		return h.svc.RejectOrder(r.Context(), actor, storeID, orderID, body.Reason)
	})
}

func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.storeCommand(w, r, func(actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error) {
		return h.svc.CompleteOrder(r.Context(), actor, storeID, orderID)
	})
}

func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.PaymentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeResult(w, http.StatusBadRequest, domain.Fail("malformed request body"))
		return
	}
	h.storeCommand(w, r, func(actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error) {
		return h.svc.UpdatePaymentStatus(r.Context(), actor, storeID, orderID, body.Status)
	})
}

func (h *OrderHandler) SimulatePayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.svc.SimulatePayment(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, domain.OK(order))
}

func (h *OrderHandler) ListStore(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}
	actor := auth.ActorFromContext(r.Context())
	orders, err := h.svc.ListStoreOrders(r.Context(), actor, storeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, domain.OK(orders))
}

func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	orders, err := h.svc.ListAllOrders(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, domain.OK(orders))
}

func (h *OrderHandler) storeCommand(w http.ResponseWriter, r *http.Request, run func(actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error)) {
	storeID, ok := pathID(w, r, "storeID")
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := run(auth.ActorFromContext(r.Context()), storeID, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, domain.OK(order))
}

func (h *OrderHandler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeResult(w, http.StatusBadRequest, domain.Fail(ve.Error()))
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnauthorized):
		// One message for both, so existence never leaks across tenants.
		writeResult(w, http.StatusNotFound, domain.Fail("order not found or permission denied"))
	case errors.Is(err, domain.ErrInvalidTransition):
		writeResult(w, http.StatusConflict, domain.Fail(err.Error()))
	default:
		h.lg.Error("command_failed", "error", err)
		writeResult(w, http.StatusInternalServerError, domain.Fail("internal error"))
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeResult(w, http.StatusBadRequest, domain.Fail("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func writeResult(w http.ResponseWriter, code int, res domain.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(res)
}
