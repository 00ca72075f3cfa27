package repositories

import (
	"context"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db. Units of work map onto
// database transactions.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Wallets() WalletRepository           { return NewWalletRepository(s.db) }
func (s *gormStore) Transactions() TransactionRepository { return NewTransactionRepository(s.db) }
func (s *gormStore) Flags() FlagRepository               { return NewFlagRepository(s.db) }
func (s *gormStore) Users() UserRepository               { return NewUserRepository(s.db) }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
