package ledger

import (
	"context"

	"ledgerly/internal/models"
	"ledgerly/internal/services/fraud"

	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	UserID      uint            `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

type WithdrawRequest struct {
	UserID      uint            `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

type TransferRequest struct {
	FromUserID  uint            `json:"-"`
	ToUserID    uint            `json:"to_user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// Result is returned by Deposit and Withdraw. NewBalance is in the base
// currency.
type Result struct {
	Transaction  *models.Transaction `json:"transaction"`
	NewBalance   decimal.Decimal     `json:"new_balance"`
	BaseCurrency string              `json:"base_currency"`
	Flagged      bool                `json:"flagged"`
	Reasons      []string            `json:"reasons,omitempty"`
}

// TransferResult carries both balances after a transfer, in the base
// currency.
type TransferResult struct {
	Transaction  *models.Transaction `json:"transaction"`
	FromBalance  decimal.Decimal     `json:"from_balance"`
	ToBalance    decimal.Decimal     `json:"to_balance"`
	BaseCurrency string              `json:"base_currency"`
	Flagged      bool                `json:"flagged"`
	Reasons      []string            `json:"reasons,omitempty"`
}

type HistoryPage struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
}

// IdentityProvider resolves whether a user may receive funds.
type IdentityProvider interface {
	Exists(ctx context.Context, userID uint) (bool, error)
}

// FraudChecker runs the real-time check on a committed transaction.
type FraudChecker interface {
	Check(ctx context.Context, tx *models.Transaction) (*fraud.CheckResult, error)
}

type EventPublisher interface {
	PublishTransactionCompleted(ctx context.Context, tx *models.Transaction) error
}
