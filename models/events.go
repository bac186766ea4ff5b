package models

import "time"

// Ledger event types
const (
	EventBalanceCredited = "balance_credited"
	EventBalanceDebited  = "balance_debited"
)

// LedgerEvent is published after every applied balance mutation.
type LedgerEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	Amount     int       `json:"amount"`
	NewBalance int       `json:"new_balance"`
	Timestamp  time.Time `json:"timestamp"`
}
