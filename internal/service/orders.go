package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"

	"ordering-platform/internal/auth"
	"ordering-platform/internal/domain"
	"ordering-platform/internal/lifecycle"
	"ordering-platform/internal/metrics"
	"ordering-platform/internal/repository"
)

var (
	phoneRe = regexp.MustCompile(`^[0-9]{10}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ChangePublisher fans a committed snapshot out to subscribers.
type ChangePublisher interface {
	PublishChange(ctx context.Context, o domain.Order) error
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	AcceptOrder(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error)
	RejectOrder(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID, reason string) (domain.Order, error)
	CompleteOrder(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID, next domain.PaymentStatus) (domain.Order, error)
	SimulatePayment(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListStoreOrders(ctx context.Context, actor domain.Actor, storeID uuid.UUID) ([]domain.Order, error)
	ListAllOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
}

type OrderService struct {
	repo  repository.Orders
	pub   ChangePublisher
	guard *auth.Guard
	lg    *slog.Logger

	SimulateDelay time.Duration
}

func NewOrderService(repo repository.Orders, pub ChangePublisher, guard *auth.Guard, lg *slog.Logger) *OrderService {
	return &OrderService{
		repo:          repo,
		pub:           pub,
		guard:         guard,
		lg:            lg,
		SimulateDelay: 2 * time.Second,
	}
}

// CreateOrder is customer-invocable. The order and its items are written as
// a unit: if an item insert fails after the order insert succeeded, the
// order row is deleted again so no orphan survives.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if err := validateCreate(req); err != nil {
		return s.fail("create", err)
	}

	total := 0.0
	for _, item := range req.Items {
		total += float64(item.Quantity) * item.Price
	}
	if req.Total != 0 && math.Abs(req.Total-total) > 0.005 {
		return s.fail("create", domain.Invalid("total", "does not match item prices"))
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:            uuid.New(),
		StoreID:       req.StoreID,
		CustomerName:  req.Customer.Name,
		CustomerPhone: req.Customer.Phone,
		CustomerEmail: req.Customer.Email,
		TotalAmount:   total,
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
		})
	}

	if err := s.repo.Insert(ctx, &order); err != nil {
		return s.fail("create", err)
	}
	if err := s.repo.InsertItems(ctx, order.ID, items); err != nil {
		if delErr := s.repo.Delete(ctx, order.ID); delErr != nil {
			s.lg.Error("compensating delete failed", "order_id", order.ID, "error", delErr)
		}
		return s.fail("create", fmt.Errorf("failed to save order items: %w", err))
	}
	order.Items = items

	s.publish(ctx, order)
	metrics.CommandsTotal.WithLabelValues("create", "ok").Inc()
	s.lg.Info("order_created", "order_id", order.ID, "store_id", order.StoreID, "total", order.TotalAmount)
	return order, nil
}

func (s *OrderService) AcceptOrder(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error) {
	return s.transition(ctx, "accept", actor, storeID, orderID, domain.StatusAccepted, nil)
}

func (s *OrderService) RejectOrder(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID, reason string) (domain.Order, error) {
	var r *string
	if reason != "" {
		r = &reason
	}
	return s.transition(ctx, "reject", actor, storeID, orderID, domain.StatusRejected, r)
}

func (s *OrderService) CompleteOrder(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID) (domain.Order, error) {
	return s.transition(ctx, "complete", actor, storeID, orderID, domain.StatusCompleted, nil)
}

func (s *OrderService) transition(ctx context.Context, command string, actor domain.Actor, storeID, orderID uuid.UUID, next domain.Status, reason *string) (domain.Order, error) {
	if err := s.guard.RequireStaff(actor, storeID); err != nil {
		return s.fail(command, err)
	}
	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return s.fail(command, err)
	}
	if current.StoreID != storeID {
		return s.fail(command, domain.ErrNotFound)
	}
	if _, err := lifecycle.Validate(current.Status, next); err != nil {
		return s.fail(command, err)
	}

	// The write re-checks the source status in its predicate; the target is
	// included so a concurrent identical command stays an idempotent success.
	from := append(lifecycle.Sources(next), next)
	updated, err := s.repo.UpdateStatus(ctx, orderID, storeID, next, reason, from)
	if err != nil {
		return s.fail(command, err)
	}

	s.publish(ctx, updated)
	metrics.CommandsTotal.WithLabelValues(command, "ok").Inc()
	s.lg.Info("order_status_changed", "order_id", orderID, "from", current.Status, "to", updated.Status, "changed_by", actor.Subject)
	return updated, nil
}

// UpdatePaymentStatus is staff-only. Setting paid also completes the order
// in the same write, so observers reconcile one snapshot with both changes.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, actor domain.Actor, storeID, orderID uuid.UUID, next domain.PaymentStatus) (domain.Order, error) {
	if err := s.guard.RequireStaff(actor, storeID); err != nil {
		return s.fail("update_payment", err)
	}
	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return s.fail("update_payment", err)
	}
	if current.StoreID != storeID {
		return s.fail("update_payment", domain.ErrNotFound)
	}
	if _, err := lifecycle.ValidatePayment(current.PaymentStatus, next, false); err != nil {
		return s.fail("update_payment", err)
	}

	complete := next == domain.PaymentPaid
	from := append(lifecycle.PaymentSources(next), next)
	updated, err := s.repo.UpdatePayment(ctx, orderID, storeID, next, complete, from)
	if err != nil {
		return s.fail("update_payment", err)
	}

	s.publish(ctx, updated)
	metrics.CommandsTotal.WithLabelValues("update_payment", "ok").Inc()
	s.lg.Info("payment_status_changed", "order_id", orderID, "to", updated.PaymentStatus, "changed_by", actor.Subject)
	return updated, nil
}

// SimulatePayment is customer-invocable: it moves payment to processing over
// the privileged by-id path and then waits out an artificial settlement
// delay. It never advances to paid; settlement is a staff action through
// UpdatePaymentStatus.
//
// TODO: product call needed on whether a simulated payment may ever settle
// to paid without a cashier; UpdatePaymentStatus(paid) auto-completes the
// order, this path stops at processing.
func (s *OrderService) SimulatePayment(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	from := append(lifecycle.PaymentSources(domain.PaymentProcessing), domain.PaymentProcessing)
	updated, err := s.repo.UpdatePaymentByID(ctx, orderID, domain.PaymentProcessing, from)
	if err != nil {
		return s.fail("simulate_payment", err)
	}

	s.publish(ctx, updated)

	select {
	case <-time.After(s.SimulateDelay):
	case <-ctx.Done():
	}

	metrics.CommandsTotal.WithLabelValues("simulate_payment", "ok").Inc()
	s.lg.Info("payment_simulated", "order_id", orderID)
	return updated, nil
}

// OverridePaymentStatus is the administrative regression path (for example
// processing -> unpaid after a stuck settlement). Operator-only and not
// mounted on the default router.
func (s *OrderService) OverridePaymentStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, next domain.PaymentStatus) (domain.Order, error) {
	if err := s.guard.RequireOperator(actor); err != nil {
		return s.fail("override_payment", err)
	}
	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return s.fail("override_payment", err)
	}
	if _, err := lifecycle.ValidatePayment(current.PaymentStatus, next, true); err != nil {
		return s.fail("override_payment", err)
	}

	updated, err := s.repo.UpdatePaymentByID(ctx, orderID, next, []domain.PaymentStatus{current.PaymentStatus, next})
	if err != nil {
		return s.fail("override_payment", err)
	}

	s.publish(ctx, updated)
	metrics.CommandsTotal.WithLabelValues("override_payment", "ok").Inc()
	s.lg.Info("payment_status_overridden", "order_id", orderID, "to", next, "changed_by", actor.Subject)
	return updated, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *OrderService) ListStoreOrders(ctx context.Context, actor domain.Actor, storeID uuid.UUID) ([]domain.Order, error) {
	if err := s.guard.RequireStaff(actor, storeID); err != nil {
		return nil, err
	}
	return s.repo.ListByStore(ctx, storeID)
}

func (s *OrderService) ListAllOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if err := s.guard.RequireOperator(actor); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

// publish is best-effort: the write is already committed, delivery is
// at-least-once, so a broker hiccup is logged and the command still
// succeeds.
func (s *OrderService) publish(ctx context.Context, o domain.Order) {
	if err := s.pub.PublishChange(ctx, o); err != nil {
		s.lg.Error("publish_failed", "order_id", o.ID, "error", err)
	}
}

func (s *OrderService) fail(command string, err error) (domain.Order, error) {
	metrics.CommandsTotal.WithLabelValues(command, "error").Inc()
	return domain.Order{}, err
}

func validateCreate(req domain.CreateOrderRequest) error {
	if req.StoreID == uuid.Nil {
		return domain.Invalid("store_id", "is required")
	}
	if req.Customer.Name == "" {
		return domain.Invalid("customer.name", "is required")
	}
	if !phoneRe.MatchString(req.Customer.Phone) {
		return domain.Invalid("customer.phone", "must be exactly 10 digits")
	}
	if req.Customer.Email != "" && !emailRe.MatchString(req.Customer.Email) {
		return domain.Invalid("customer.email", "is not a valid email address")
	}
	if len(req.Items) == 0 {
		return domain.Invalid("items", "at least one item is required")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return domain.Invalid("items", fmt.Sprintf("invalid quantity for item %s", item.Name))
		}
		if item.Price < 0 {
			return domain.Invalid("items", fmt.Sprintf("invalid price for item %s", item.Name))
		}
	}
	return nil
}
