// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"errors"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrDuplicateWallet     = errors.New("wallet already exists")
	ErrVersionConflict     = errors.New("wallet version conflict")
	ErrNegativeBalance     = errors.New("wallet balance cannot be negative")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateReference  = errors.New("transaction reference already exists")
	ErrStatusConflict      = errors.New("transaction status changed concurrently")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateUser       = errors.New("user already exists")
)

// Tx groups the repositories that take part in one unit of work.
type Tx interface {
	Wallets() WalletRepository
	Transactions() TransactionRepository
	Flags() FlagRepository
	Users() UserRepository
}

// Store is the persistence contract of the ledger. Repositories obtained
// directly from the Store run outside any unit of work.
type Store interface {
	Tx

	// WithinTx runs fn in a single atomic unit. If fn returns an error,
	// nothing it wrote is kept.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
