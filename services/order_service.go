package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/models"
	"account-service/repository"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateOrderRequest struct {
	Items []struct {
		ProductID uuid.UUID `json:"product_id" binding:"required"`
		Quantity  int       `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,dive"`
}

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// CheckoutCreator abstracts the Stripe dependency for tests.
type CheckoutCreator interface {
	CreateCheckoutSession(order *models.Order, lineItems []*stripe.CheckoutSessionLineItemParams, frontendURL string) (*stripe.CheckoutSession, error)
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	stripeSvc   CheckoutCreator
	frontendURL string
	logger      *zap.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, stripeSvc CheckoutCreator, frontendURL string, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		stripeSvc:   stripeSvc,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// CreateOrder creates a pending order for the user and a Stripe Checkout
// Session to pay for it. The order is only credited later, when the webhook
// reports the session as paid.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*models.Order, string, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, "", &ServiceError{StatusCode: 400, Message: "At least one item is required"}
	}

	var (
		orderItems []models.OrderItem
		lineItems  []*stripe.CheckoutSessionLineItemParams
		totalCents int
	)

	for _, item := range req.Items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", &ServiceError{StatusCode: 400, Message: fmt.Sprintf("Unknown product: %s", item.ProductID)}
			}
			s.logger.Error("Failed to fetch product", zap.String("product_id", item.ProductID.String()), zap.Error(err))
			return nil, "", &ServiceError{StatusCode: 500, Message: "Failed to create order"}
		}
		if !product.Active {
			return nil, "", &ServiceError{StatusCode: 400, Message: fmt.Sprintf("Product not available: %s", product.Slug)}
		}

		orderItems = append(orderItems, models.OrderItem{
			ProductID:  product.ID,
			Quantity:   item.Quantity,
			PriceCents: product.PriceCents,
		})
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(product.Currency),
				UnitAmount: stripe.Int64(int64(product.PriceCents)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(product.Name),
				},
			},
		})
		totalCents += product.PriceCents * item.Quantity
	}

	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: newOrderNumber(),
		UserID:      userID,
		TotalCents:  totalCents,
		Status:      models.OrderStatusPending,
		Items:       orderItems,
	}

	sess, err := s.stripeSvc.CreateCheckoutSession(order, lineItems, s.frontendURL)
	if err != nil {
		s.logger.Error("Failed to create Stripe Checkout Session",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, "", &ServiceError{StatusCode: 502, Message: "Payment provider unavailable"}
	}
	order.StripeCheckoutSessionID = sess.ID

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, "", &ServiceError{StatusCode: 500, Message: "Failed to create order"}
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("total_cents", totalCents))

	return order, sess.URL, nil
}

// GetUserOrders retrieves paginated orders for a specific user
func (s *OrderService) GetUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orderRepo.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to fetch orders"}
	}

	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}, nil
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
