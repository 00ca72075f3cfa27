package errors

var (
	ErrInvalidAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrNegativeAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "NEGATIVE_AMOUNT",
		Message: "amount cannot be negative",
	}
	ErrInvalidCurrency = &DomainError{
		Kind:    KindCurrencyUnsupported,
		Code:    "INVALID_CURRENCY",
		Message: "invalid currency code",
	}
	ErrInsufficientBalance = &DomainError{
		Kind:    KindInsufficientBalance,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
	}
	ErrRecipientNotFound = &DomainError{
		Kind:    KindRecipientNotFound,
		Code:    "RECIPIENT_NOT_FOUND",
		Message: "recipient not found",
	}
	ErrSelfTransfer = &DomainError{
		Kind:    KindSelfTransfer,
		Code:    "SELF_TRANSFER",
		Message: "cannot transfer to yourself",
	}
	ErrConcurrencyConflict = &DomainError{
		Kind:    KindConcurrencyConflict,
		Code:    "CONCURRENCY_CONFLICT",
		Message: "wallet was modified concurrently, please retry",
	}
	ErrStoreUnavailable = &DomainError{
		Kind:    KindStoreUnavailable,
		Code:    "STORE_UNAVAILABLE",
		Message: "ledger store unavailable",
	}
	ErrReferenceCollision = &DomainError{
		Kind:    KindInternal,
		Code:    "REFERENCE_COLLISION",
		Message: "transaction reference already exists",
	}
	ErrWalletNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrWalletInactive = &DomainError{
		Kind:    KindValidation,
		Code:    "WALLET_INACTIVE",
		Message: "wallet is inactive",
	}
	ErrTransactionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrInvalidTransaction = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_TRANSACTION",
		Message: "invalid transaction",
	}
	ErrInvalidStatusTransition = &DomainError{
		Kind:    KindInternal,
		Code:    "INVALID_STATUS_TRANSITION",
		Message: "invalid transaction status transition",
	}
	ErrRateUnavailable = &DomainError{
		Kind:    KindInternal,
		Code:    "RATE_UNAVAILABLE",
		Message: "exchange rate unavailable",
	}
)
