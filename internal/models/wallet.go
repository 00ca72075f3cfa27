package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's balance in the base currency. Currency is only the
// user's preferred display currency.
type Wallet struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	UserID            uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance           decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0;check:chk_wallets_balance_non_negative,balance >= 0" json:"balance"`
	Currency          string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
	IsActive          bool            `gorm:"not null;default:true" json:"is_active"`
	Version           int64           `gorm:"not null;default:0" json:"-"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewWallet returns an active, empty wallet for userID.
func NewWallet(userID uint, currency string) *Wallet {
	return &Wallet{
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: currency,
		IsActive: true,
	}
}
