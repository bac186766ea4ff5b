package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"account-service/repository"
	"account-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookParser abstracts Stripe signature verification for tests.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// WebhookController turns Stripe events into order transitions and balance
// credits. The whole path is redelivery-safe: marking a paid order paid again
// is a no-op and the credit processor is idempotent per order.
type WebhookController struct {
	Stripe WebhookParser
	Orders repository.OrderRepository
	Ledger *services.LedgerService
	Logger *zap.Logger
}

func NewWebhookController(stripeSvc WebhookParser, orders repository.OrderRepository, ledger *services.LedgerService, logger *zap.Logger) *WebhookController {
	return &WebhookController{Stripe: stripeSvc, Orders: orders, Ledger: ledger, Logger: logger}
}

// StripeWebhook receives and dispatches Stripe webhook events.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	wc.Logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	switch event.Type {
	case "checkout.session.completed":
		wc.handleCheckoutCompleted(c, event)
	case "payment_intent.succeeded":
		wc.handlePaymentIntentSucceeded(c, event)
	case "checkout.session.expired":
		wc.handleCheckoutExpired(c, event)
	default:
		wc.Logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (wc *WebhookController) handleCheckoutCompleted(c *gin.Context, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		wc.Logger.Error("Failed to unmarshal checkout session", zap.Error(err))
		return
	}

	orderID := sess.Metadata["order_id"]
	if orderID == "" {
		wc.Logger.Warn("Missing order_id metadata in checkout session",
			zap.String("session_id", sess.ID))
		return
	}

	paymentIntentID := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		paymentIntentID = sess.PaymentIntent.ID
	}

	wc.settleOrder(c, orderID, paymentIntentID)
}

func (wc *WebhookController) handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		wc.Logger.Error("Failed to unmarshal payment intent", zap.Error(err))
		return
	}

	orderID := pi.Metadata["order_id"]
	if orderID == "" {
		wc.Logger.Info("Payment intent carries no order metadata, skipping",
			zap.String("payment_intent_id", pi.ID))
		return
	}

	wc.settleOrder(c, orderID, pi.ID)
}

func (wc *WebhookController) handleCheckoutExpired(c *gin.Context, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		wc.Logger.Error("Failed to unmarshal checkout session", zap.Error(err))
		return
	}

	orderID, err := uuid.Parse(sess.Metadata["order_id"])
	if err != nil {
		return
	}

	if err := wc.Orders.MarkPaymentFailed(c.Request.Context(), orderID); err != nil {
		wc.Logger.Error("Failed to mark order payment as failed",
			zap.String("order_id", orderID.String()), zap.Error(err))
	}
}

// settleOrder marks the order paid and runs the balance credit processor.
func (wc *WebhookController) settleOrder(c *gin.Context, orderIDStr, paymentIntentID string) {
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		wc.Logger.Warn("Invalid order_id in webhook metadata", zap.String("order_id", orderIDStr))
		return
	}

	ctx := c.Request.Context()
	order, err := wc.Orders.MarkPaid(ctx, orderID, paymentIntentID, time.Now().UTC())
	if err != nil {
		wc.Logger.Error("Failed to mark order as paid",
			zap.String("order_id", orderID.String()), zap.Error(err))
		return
	}

	if _, err := wc.Ledger.CreditOrder(ctx, order); err != nil {
		wc.Logger.Error("Failed to credit order",
			zap.String("order_id", orderID.String()), zap.Error(err))
	}
}
