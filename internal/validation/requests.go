package validation

import (
	"ledgerly/internal/services/ledger"
	"ledgerly/internal/services/wallet"

	"github.com/shopspring/decimal"
)

const MaxDescriptionLength = 500

// moneyFields are the fields every ledger request carries. Amount sign is
// left to the ledger so it reports INVALID_AMOUNT consistently.
type moneyFields struct {
	amount      decimal.Decimal
	currency    string
	description string
}

func (v *Validator) money(req moneyFields) {
	v.MaxScale("amount", req.amount, wallet.BaseScale)
	v.CurrencyCode("currency", req.currency)
	v.MaxLength("description", req.description, MaxDescriptionLength)
}

func (v *Validator) Deposit(req ledger.DepositRequest) {
	v.money(moneyFields{req.Amount, req.Currency, req.Description})
}

func (v *Validator) Withdraw(req ledger.WithdrawRequest) {
	v.money(moneyFields{req.Amount, req.Currency, req.Description})
}

func (v *Validator) Transfer(req ledger.TransferRequest) {
	v.Required("to_user_id", req.ToUserID)
	v.money(moneyFields{req.Amount, req.Currency, req.Description})
}
