package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"account-service/kafka"
	"account-service/models"
	"account-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// CreditOutcome reports what a completion event did to the user's balance.
type CreditOutcome struct {
	Applied      bool
	Amount       int
	NewBalance   int
	SkippedItems int
}

// LedgerService owns all balance mutations: credits when an order is paid,
// debits when tokens are consumed. Every mutation goes through the ledger
// repository, which serializes per-user read-modify-write sequences and
// enforces the idempotency keys.
type LedgerService struct {
	ledgerRepo   repository.LedgerRepository
	userRepo     repository.UserRepository
	productRepo  repository.ProductRepository
	catalog      *TokenCatalog
	productCache *ProductCache
	producer     kafka.ProducerAPI
	snsClient    SNSPublisher
	snsTopicArn  string
	logger       *zap.Logger
}

func NewLedgerService(
	ledgerRepo repository.LedgerRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	catalog *TokenCatalog,
	productCache *ProductCache,
	producer kafka.ProducerAPI,
	snsClient SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		ledgerRepo:   ledgerRepo,
		userRepo:     userRepo,
		productRepo:  productRepo,
		catalog:      catalog,
		productCache: productCache,
		producer:     producer,
		snsClient:    snsClient,
		snsTopicArn:  snsTopicArn,
		logger:       logger,
	}
}

// CreditOrder credits the ordering user's balance for a paid order. It is
// safe to call on every order write: unpaid orders are skipped, and a
// redelivered completion event for an already-credited order is a no-op.
func (s *LedgerService) CreditOrder(ctx context.Context, order *models.Order) (*CreditOutcome, error) {
	if order.StripePaymentIntentID == "" {
		s.logger.Debug("Order has no payment intent, skipping credit",
			zap.String("order_id", order.ID.String()))
		return &CreditOutcome{}, nil
	}

	amount, skipped := s.creditAmount(ctx, order)
	if amount == 0 {
		s.logger.Info("No balance increase for order",
			zap.String("order_id", order.ID.String()),
			zap.Int("skipped_items", skipped))
		return &CreditOutcome{SkippedItems: skipped}, nil
	}

	result, err := s.ledgerRepo.ApplyOrderCredit(ctx, order.UserID, order.ID, amount)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Ordering user not found, skipping credit",
				zap.String("order_id", order.ID.String()),
				zap.String("user_id", order.UserID.String()))
			return nil, err
		}
		s.logger.Error("Failed to apply order credit",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return nil, err
	}

	if !result.Applied {
		s.logger.Info("Order already credited, skipping",
			zap.String("order_id", order.ID.String()))
		return &CreditOutcome{Amount: amount, NewBalance: result.NewBalance, SkippedItems: skipped}, nil
	}

	s.logger.Info("User balance credited",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.Int("amount", amount),
		zap.Int("new_balance", result.NewBalance))

	s.publishEvent(ctx, models.LedgerEvent{
		Type:       models.EventBalanceCredited,
		UserID:     order.UserID.String(),
		OrderID:    order.ID.String(),
		Amount:     amount,
		NewBalance: result.NewBalance,
		Timestamp:  time.Now().UTC(),
	})

	return &CreditOutcome{Applied: true, Amount: amount, NewBalance: result.NewBalance, SkippedItems: skipped}, nil
}

// creditAmount sums the token grants of the order's line items. Items whose
// product cannot be found are skipped so the rest of the order still credits.
func (s *LedgerService) creditAmount(ctx context.Context, order *models.Order) (amount, skipped int) {
	for _, item := range order.Items {
		product, err := s.lookupProduct(ctx, item.ProductID)
		if err != nil {
			s.logger.Warn("Product not found for order item, skipping",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err))
			skipped++
			continue
		}

		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		amount += s.catalog.TokensPerUnit(product.Slug) * quantity
	}
	return amount, skipped
}

func (s *LedgerService) lookupProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if product, ok := s.productCache.Get(ctx, id); ok {
		return product, nil
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.productCache.Set(ctx, product)
	return product, nil
}

// Debit subtracts amount from the user's balance and returns the new balance.
// reference, when non-empty, is a caller-supplied idempotency key: a retried
// request with the same key returns the balance the first application
// produced instead of debiting twice.
func (s *LedgerService) Debit(ctx context.Context, userID uuid.UUID, amount int, reference string) (int, *ServiceError) {
	if amount <= 0 {
		return 0, &ServiceError{StatusCode: 400, Message: "Amount must be a positive integer"}
	}

	result, err := s.ledgerRepo.ApplyDebit(ctx, userID, amount, reference)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return 0, &ServiceError{StatusCode: 404, Message: "User not found"}
		case errors.Is(err, repository.ErrInsufficientBalance):
			return 0, &ServiceError{StatusCode: 400, Message: "Insufficient balance"}
		default:
			s.logger.Error("Failed to apply debit",
				zap.String("user_id", userID.String()), zap.Error(err))
			return 0, &ServiceError{StatusCode: 500, Message: "Failed to deduct balance"}
		}
	}

	if result.Applied {
		s.logger.Info("User balance debited",
			zap.String("user_id", userID.String()),
			zap.Int("amount", amount),
			zap.Int("new_balance", result.NewBalance))

		s.publishEvent(ctx, models.LedgerEvent{
			Type:       models.EventBalanceDebited,
			UserID:     userID.String(),
			Reference:  reference,
			Amount:     amount,
			NewBalance: result.NewBalance,
			Timestamp:  time.Now().UTC(),
		})
	}

	return result.NewBalance, nil
}

// Balance returns the user's current token balance.
func (s *LedgerService) Balance(ctx context.Context, userID uuid.UUID) (int, *ServiceError) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &ServiceError{StatusCode: 404, Message: "User not found"}
		}
		s.logger.Error("Failed to fetch user balance",
			zap.String("user_id", userID.String()), zap.Error(err))
		return 0, &ServiceError{StatusCode: 500, Message: "Failed to fetch balance"}
	}
	return user.Balance, nil
}

// History returns the user's ledger entries, newest first.
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.LedgerEntry, int64, *ServiceError) {
	entries, total, err := s.ledgerRepo.EntriesByUser(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch ledger history",
			zap.String("user_id", userID.String()), zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to fetch ledger history"}
	}
	return entries, total, nil
}

// publishEvent pushes a ledger event to Kafka and SNS, best-effort. A
// publish failure never fails the mutation that produced the event.
func (s *LedgerService) publishEvent(ctx context.Context, event models.LedgerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal ledger event", zap.Error(err))
		return
	}

	if s.producer != nil {
		if err := s.producer.Publish(event.UserID, payload); err != nil {
			s.logger.Error("Failed to publish ledger event to Kafka",
				zap.String("event_type", event.Type), zap.Error(err))
		}
	}

	if s.snsClient != nil && s.snsTopicArn != "" {
		if err := s.snsClient.Publish(ctx, s.snsTopicArn, payload); err != nil {
			s.logger.Error("Failed to publish ledger event to SNS",
				zap.String("event_type", event.Type), zap.Error(err))
		}
	}
}
