package repository

import (
	"context"
	"errors"

	"account-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientBalance is returned when a debit exceeds the user's balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// MutationResult reports the outcome of a ledger mutation. Applied is false
// when the mutation was already recorded under the same key, in which case
// NewBalance carries the balance the earlier application produced.
type MutationResult struct {
	Applied    bool
	NewBalance int
}

// LedgerRepository serializes all balance mutations for a user. The Gorm
// implementation locks the user row for the duration of the transaction, so
// concurrent credits and debits against one user cannot interleave their
// read-modify-write sequences.
type LedgerRepository interface {
	ApplyOrderCredit(ctx context.Context, userID, orderID uuid.UUID, amount int) (*MutationResult, error)
	ApplyDebit(ctx context.Context, userID uuid.UUID, amount int, reference string) (*MutationResult, error)
	EntriesByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.LedgerEntry, int64, error)
}

type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) LedgerRepository {
	return &GormLedgerRepository{db: db}
}

// ApplyOrderCredit credits amount to the user, at most once per order. The
// existing-entry check and the balance update run inside one transaction with
// the user row locked, so webhook redelivery and concurrent completions both
// collapse to a single applied credit.
func (r *GormLedgerRepository) ApplyOrderCredit(ctx context.Context, userID, orderID uuid.UUID, amount int) (*MutationResult, error) {
	var result MutationResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		var existing models.LedgerEntry
		err := tx.Where("order_id = ?", orderID).First(&existing).Error
		if err == nil {
			result = MutationResult{Applied: false, NewBalance: existing.BalanceAfter}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		newBalance := user.Balance + amount
		entry := models.LedgerEntry{
			UserID:       userID,
			Type:         models.LedgerEntryCredit,
			Amount:       amount,
			BalanceAfter: newBalance,
			OrderID:      &orderID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Update("balance", newBalance).Error; err != nil {
			return err
		}

		result = MutationResult{Applied: true, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyDebit subtracts amount from the user's balance, failing with
// ErrInsufficientBalance before any write when the balance does not cover it.
// A non-empty reference acts as an idempotency key scoped to the user: a
// debit the user already recorded under it is not re-applied, while another
// user reusing the same key debits normally.
func (r *GormLedgerRepository) ApplyDebit(ctx context.Context, userID uuid.UUID, amount int, reference string) (*MutationResult, error) {
	var result MutationResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		if reference != "" {
			var existing models.LedgerEntry
			err := tx.Where("user_id = ? AND reference = ?", userID, reference).First(&existing).Error
			if err == nil {
				result = MutationResult{Applied: false, NewBalance: existing.BalanceAfter}
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if user.Balance < amount {
			return ErrInsufficientBalance
		}

		newBalance := user.Balance - amount
		entry := models.LedgerEntry{
			UserID:       userID,
			Type:         models.LedgerEntryDebit,
			Amount:       amount,
			BalanceAfter: newBalance,
		}
		if reference != "" {
			entry.Reference = &reference
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Update("balance", newBalance).Error; err != nil {
			return err
		}

		result = MutationResult{Applied: true, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// EntriesByUser retrieves a user's ledger history with pagination
func (r *GormLedgerRepository) EntriesByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
