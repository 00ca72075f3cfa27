package models

import (
	"strings"
	"time"

	apperrors "ledgerly/internal/errors"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger record. Amount is what the user entered
// in Currency; BaseAmount is what actually moved between wallets.
type Transaction struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	Type        TransactionType   `gorm:"size:16;not null;index" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"amount"`
	Currency    string            `gorm:"size:3;not null" json:"currency"`
	BaseAmount  decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"base_amount"`
	FromUserID  *uint             `gorm:"index:idx_transactions_from_created,priority:1" json:"from_user_id,omitempty"`
	ToUserID    *uint             `gorm:"index:idx_transactions_to_created,priority:1" json:"to_user_id,omitempty"`
	Status      TransactionStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	Reference   string            `gorm:"size:40;uniqueIndex;not null" json:"reference"`
	Description string            `json:"description,omitempty"`
	IsDeleted   bool              `gorm:"not null;default:false;index" json:"-"`
	Metadata    JSON              `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"index:idx_transactions_from_created,priority:2;index:idx_transactions_to_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TransactionParams carries the fields NewTransaction validates.
type TransactionParams struct {
	Type        TransactionType
	Amount      decimal.Decimal
	Currency    string
	BaseAmount  decimal.Decimal
	FromUserID  *uint
	ToUserID    *uint
	Reference   string
	Description string
	Metadata    JSON
	CreatedAt   time.Time
}

// NewTransaction validates kind, party and amount rules and returns a
// pending transaction. Nothing is written.
func NewTransaction(p TransactionParams) (*Transaction, error) {
	if !p.Type.Valid() {
		return nil, apperrors.ErrInvalidTransaction.WithMessage("unknown transaction type %q", p.Type)
	}
	if !p.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if p.BaseAmount.IsNegative() {
		return nil, apperrors.ErrNegativeAmount
	}
	if strings.TrimSpace(p.Currency) == "" {
		return nil, apperrors.ErrInvalidCurrency
	}
	if p.Reference == "" {
		return nil, apperrors.ErrInvalidTransaction.WithMessage("transaction reference is required")
	}

	hasFrom := p.FromUserID != nil && *p.FromUserID != 0
	hasTo := p.ToUserID != nil && *p.ToUserID != 0
	switch p.Type {
	case TransactionTypeDeposit:
		if !hasTo || hasFrom {
			return nil, apperrors.ErrInvalidTransaction.WithMessage("deposit requires a destination user only")
		}
	case TransactionTypeWithdrawal:
		if !hasFrom || hasTo {
			return nil, apperrors.ErrInvalidTransaction.WithMessage("withdrawal requires a source user only")
		}
	case TransactionTypeTransfer:
		if !hasFrom || !hasTo {
			return nil, apperrors.ErrInvalidTransaction.WithMessage("transfer requires source and destination users")
		}
		if *p.FromUserID == *p.ToUserID {
			return nil, apperrors.ErrSelfTransfer
		}
	}

	return &Transaction{
		Type:        p.Type,
		Amount:      p.Amount,
		Currency:    strings.ToUpper(p.Currency),
		BaseAmount:  p.BaseAmount,
		FromUserID:  p.FromUserID,
		ToUserID:    p.ToUserID,
		Status:      TransactionStatusPending,
		Reference:   p.Reference,
		Description: p.Description,
		Metadata:    p.Metadata,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.CreatedAt,
	}, nil
}

// TransitionTo moves a pending transaction to completed or failed.
// Any other move is rejected.
func (t *Transaction) TransitionTo(status TransactionStatus) error {
	if t.Status != TransactionStatusPending {
		return apperrors.ErrInvalidStatusTransition.WithMessage("transaction %s is already %s", t.Reference, t.Status)
	}
	switch status {
	case TransactionStatusCompleted, TransactionStatusFailed:
		t.Status = status
		return nil
	default:
		return apperrors.ErrInvalidStatusTransition.WithMessage("cannot move transaction %s to %s", t.Reference, status)
	}
}

// OwnerID is the user a transaction is attributed to: the source user, or
// the destination for deposits.
func (t *Transaction) OwnerID() uint {
	if t.FromUserID != nil {
		return *t.FromUserID
	}
	if t.ToUserID != nil {
		return *t.ToUserID
	}
	return 0
}

// Involves reports whether userID is on either side of the transaction.
func (t *Transaction) Involves(userID uint) bool {
	return (t.FromUserID != nil && *t.FromUserID == userID) ||
		(t.ToUserID != nil && *t.ToUserID == userID)
}

func UserRef(id uint) *uint {
	return &id
}
