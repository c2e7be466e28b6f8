package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordering-platform/internal/auth"
	"ordering-platform/internal/domain"
)

// stubService returns canned results so the tests cover routing, envelopes
// and the error mapping, not business logic.
type stubService struct {
	order domain.Order
	err   error
	actor domain.Actor // records what the middleware resolved
}

func (s *stubService) CreateOrder(_ context.Context, _ domain.CreateOrderRequest) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubService) AcceptOrder(_ context.Context, actor domain.Actor, _, _ uuid.UUID) (domain.Order, error) {
	s.actor = actor
	return s.order, s.err
}

func (s *stubService) RejectOrder(_ context.Context, actor domain.Actor, _, _ uuid.UUID, _ string) (domain.Order, error) {
	s.actor = actor
	return s.order, s.err
}

func (s *stubService) CompleteOrder(_ context.Context, actor domain.Actor, _, _ uuid.UUID) (domain.Order, error) {
	s.actor = actor
	return s.order, s.err
}

func (s *stubService) UpdatePaymentStatus(_ context.Context, actor domain.Actor, _, _ uuid.UUID, _ domain.PaymentStatus) (domain.Order, error) {
	s.actor = actor
	return s.order, s.err
}

func (s *stubService) SimulatePayment(_ context.Context, _ uuid.UUID) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubService) GetOrder(_ context.Context, _ uuid.UUID) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubService) ListStoreOrders(_ context.Context, actor domain.Actor, _ uuid.UUID) ([]domain.Order, error) {
	s.actor = actor
	return []domain.Order{s.order}, s.err
}

func (s *stubService) ListAllOrders(_ context.Context, actor domain.Actor) ([]domain.Order, error) {
	s.actor = actor
	return []domain.Order{s.order}, s.err
}

func newTestRouter(svc *stubService) http.Handler {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := auth.NewGuard("test-secret")
	h := NewOrderHandler(svc, lg)
	return Router(h, func(w http.ResponseWriter, r *http.Request) {}, guard)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, domain.Result) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var res domain.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return rr, res
}

func TestCreateOrderEnvelope(t *testing.T) {
	order := domain.Order{ID: uuid.New(), StoreID: uuid.New(), Status: domain.StatusPending}
	router := newTestRouter(&stubService{order: order})

	rr, res := doJSON(t, router, http.MethodPost, "/api/v1/orders", domain.CreateOrderRequest{})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
}

func TestValidationErrorIs400(t *testing.T) {
	router := newTestRouter(&stubService{err: domain.Invalid("customer.phone", "must be exactly 10 digits")})

	rr, res := doJSON(t, router, http.MethodPost, "/api/v1/orders", domain.CreateOrderRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "customer.phone")
}

func TestNotFoundAndUnauthorizedCollapse(t *testing.T) {
	storeID := uuid.New()
	orderID := uuid.New()
	path := "/api/v1/stores/" + storeID.String() + "/orders/" + orderID.String() + "/accept"

	for _, err := range []error{domain.ErrNotFound, domain.ErrUnauthorized} {
		router := newTestRouter(&stubService{err: err})
		rr, res := doJSON(t, router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "order not found or permission denied", res.Error)
	}
}

func TestInvalidTransitionIs409(t *testing.T) {
	storeID := uuid.New()
	orderID := uuid.New()
	path := "/api/v1/stores/" + storeID.String() + "/orders/" + orderID.String() + "/complete"
	router := newTestRouter(&stubService{err: domain.ErrInvalidTransition})

	rr, res := doJSON(t, router, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.False(t, res.Success)
}

func TestBadOrderIDIs400(t *testing.T) {
	router := newTestRouter(&stubService{})
	rr, res := doJSON(t, router, http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, res.Success)
}

func TestAnonymousActorReachesService(t *testing.T) {
	storeID := uuid.New()
	orderID := uuid.New()
	svc := &stubService{order: domain.Order{ID: orderID}}
	router := newTestRouter(svc)

	path := "/api/v1/stores/" + storeID.String() + "/orders/" + orderID.String() + "/accept"
	_, _ = doJSON(t, router, http.MethodPost, path, nil)

	// No token: the middleware hands the anonymous customer to the service,
	// which is where the refusal happens.
	assert.Equal(t, domain.RoleCustomer, svc.actor.Role)
}

func TestGarbageTokenIsRejectedAtTheDoor(t *testing.T) {
	router := newTestRouter(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/platform/orders", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
