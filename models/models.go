package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User model. Balance is the number of tokens the user can spend; it is only
// ever mutated through the ledger.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string     `gorm:"not null" json:"name"`
	Email           string     `gorm:"unique;not null" json:"email"`
	Password        string     `gorm:"not null" json:"-"`
	Role            string     `gorm:"type:varchar(50);default:'user'" json:"role"`
	Balance         int        `gorm:"not null;default:0" json:"balance"`
	TermsAcceptedAt *time.Time `json:"terms_accepted_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Product is a purchasable token bundle. The slug ties it to the token
// catalog ("100-tokens" grants 100 tokens per unit).
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Slug       string    `gorm:"uniqueIndex;not null" json:"slug"`
	PriceCents int       `gorm:"not null" json:"price_cents"`
	Currency   string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Active     bool      `gorm:"default:true" json:"active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Order struct {
	ID                      uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber             string     `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID                  uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TotalCents              int        `gorm:"not null" json:"total_cents"`
	Status                  string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	StripeCheckoutSessionID string     `gorm:"index" json:"stripe_checkout_session_id,omitempty"`
	StripePaymentIntentID   string     `gorm:"index" json:"stripe_payment_intent_id,omitempty"`
	PaidAt                  *time.Time `json:"paid_at,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Items                   []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	PriceCents int       `gorm:"not null" json:"price_cents"`
}

// Order statuses
const (
	OrderStatusPending       = "pending"
	OrderStatusPaid          = "paid"
	OrderStatusPaymentFailed = "payment_failed"
)

// Ledger entry types
const (
	LedgerEntryCredit = "credit"
	LedgerEntryDebit  = "debit"
)

// LedgerEntry records a single balance mutation. The unique OrderID makes
// order credits idempotent: a redelivered completion event hits the
// constraint and becomes a no-op. Reference serves the same purpose for
// caller-supplied debit idempotency keys, unique per user so one client's
// key cannot shadow another's debit.
type LedgerEntry struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_reference" json:"user_id"`
	Type         string     `gorm:"type:varchar(10);not null" json:"type"`
	Amount       int        `gorm:"not null" json:"amount"`
	BalanceAfter int        `gorm:"not null" json:"balance_after"`
	OrderID      *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"order_id,omitempty"`
	Reference    *string    `gorm:"uniqueIndex:idx_user_reference" json:"reference,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Migrate function for auto migration
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Product{}, &Order{}, &OrderItem{}, &LedgerEntry{})
}
