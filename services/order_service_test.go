package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"account-service/models"
	"account-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) FindByCheckoutSessionID(_ context.Context, sessionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.StripeCheckoutSessionID == sessionID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, paymentIntentID string, paidAt time.Time) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if order.Status != models.OrderStatusPaid {
		order.Status = models.OrderStatusPaid
		order.StripePaymentIntentID = paymentIntentID
		order.PaidAt = &paidAt
	}
	return order, nil
}

func (r *fakeOrderRepo) MarkPaymentFailed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[id]; ok && order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusPaymentFailed
	}
	return nil
}

type fakeCheckout struct {
	sessions int
	fail     bool
}

func (f *fakeCheckout) CreateCheckoutSession(order *models.Order, lineItems []*stripe.CheckoutSessionLineItemParams, _ string) (*stripe.CheckoutSession, error) {
	if f.fail {
		return nil, errors.New("stripe unavailable")
	}
	f.sessions++
	return &stripe.CheckoutSession{
		ID:  "cs_test_" + order.ID.String()[:8],
		URL: "https://checkout.stripe.example/" + order.ID.String(),
	}, nil
}

func orderReq(t *testing.T, productID uuid.UUID, quantity int) *services.CreateOrderRequest {
	t.Helper()
	payload := fmt.Sprintf(`{"items":[{"product_id":%q,"quantity":%d}]}`, productID, quantity)
	var req services.CreateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	return &req
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	store := newMemStore()
	product := seedProduct(store, "100-tokens")
	orderRepo := newFakeOrderRepo()
	checkout := &fakeCheckout{}
	svc := services.NewOrderService(orderRepo, productRepo{store: store}, checkout, "http://localhost:3000", zap.NewNop())

	userID := uuid.New()
	order, checkoutURL, svcErr := svc.CreateOrder(context.Background(), userID, orderReq(t, product.ID, 2))

	require.Nil(t, svcErr)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, product.PriceCents*2, order.TotalCents)
	assert.NotEmpty(t, order.OrderNumber)
	assert.NotEmpty(t, order.StripeCheckoutSessionID)
	assert.Contains(t, checkoutURL, "checkout.stripe.example")
	assert.Equal(t, 1, checkout.sessions)

	stored, err := orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	store := newMemStore()
	orderRepo := newFakeOrderRepo()
	svc := services.NewOrderService(orderRepo, productRepo{store: store}, &fakeCheckout{}, "http://localhost:3000", zap.NewNop())

	_, _, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderReq(t, uuid.New(), 1))

	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrder_StripeDown(t *testing.T) {
	store := newMemStore()
	product := seedProduct(store, "220-tokens")
	orderRepo := newFakeOrderRepo()
	svc := services.NewOrderService(orderRepo, productRepo{store: store}, &fakeCheckout{fail: true}, "http://localhost:3000", zap.NewNop())

	_, _, svcErr := svc.CreateOrder(context.Background(), uuid.New(), orderReq(t, product.ID, 1))

	require.NotNil(t, svcErr)
	assert.Equal(t, 502, svcErr.StatusCode)
	assert.Empty(t, orderRepo.orders)
}

func TestCreateOrder_NoItems(t *testing.T) {
	svc := services.NewOrderService(newFakeOrderRepo(), productRepo{store: newMemStore()}, &fakeCheckout{}, "http://localhost:3000", zap.NewNop())

	_, _, svcErr := svc.CreateOrder(context.Background(), uuid.New(), &services.CreateOrderRequest{})

	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}
